package netbridge

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// HandleICMPEcho answers an ICMPv4 echo request locally.
// Returns the reply frame, or nil if the packet is not an echo request.
func HandleICMPEcho(frame []byte) []byte {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv4, gopacket.Default)

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	icmpLayer := pkt.Layer(layers.LayerTypeICMPv4)
	if ipLayer == nil || icmpLayer == nil {
		return nil
	}

	ip := ipLayer.(*layers.IPv4)
	icmp := icmpLayer.(*layers.ICMPv4)
	if icmp.TypeCode.Type() != layers.ICMPv4TypeEchoRequest {
		return nil
	}

	replyIP := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    ip.DstIP,
		DstIP:    ip.SrcIP,
	}
	replyICMP := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		Id:       icmp.Id,
		Seq:      icmp.Seq,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, replyIP, replyICMP,
		gopacket.Payload(icmp.Payload)); err != nil {
		return nil
	}
	return buf.Bytes()
}
