package netbridge

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Fixed lease handed to the watch. The addressing is private to the
// Bluetooth hop; no DNS option is offered so the watch picks its own
// resolver.
var (
	dhcpClientIP = net.IPv4(10, 1, 10, 2)
	dhcpServerIP = net.IPv4(10, 1, 10, 1)
	dhcpNetmask  = net.IPv4Mask(255, 255, 255, 0)
)

// dhcpLeaseSeconds is the advertised lease time.
const dhcpLeaseSeconds = 269352960

// dhcpReplySrcIP and dhcpReplyDstIP address the reply's IPv4 header.
// The values match observed peer traffic; the watch ignores them and
// reads the DHCP payload only.
var (
	dhcpReplySrcIP = net.IPv4(255, 255, 255, 255)
	dhcpReplyDstIP = net.IPv4(10, 1, 10, 1)
)

// HandleDHCP inspects a raw IPv4 frame from the watch. If it is a DHCP
// BootRequest (src port 68 or dst port 67), the reply frame is returned
// and the packet must not reach the IP stack. Returns nil for everything
// else.
func HandleDHCP(frame []byte) []byte {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv4, gopacket.Default)

	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil
	}
	udp := udpLayer.(*layers.UDP)
	if udp.SrcPort != 68 && udp.DstPort != 67 {
		return nil
	}

	dhcpLayer := pkt.Layer(layers.LayerTypeDHCPv4)
	if dhcpLayer == nil {
		return nil
	}
	req := dhcpLayer.(*layers.DHCPv4)
	if req.Operation != layers.DHCPOpRequest {
		return nil
	}

	var replyType layers.DHCPMsgType
	switch requestType(req) {
	case layers.DHCPMsgTypeDiscover:
		replyType = layers.DHCPMsgTypeOffer
	case layers.DHCPMsgTypeRequest:
		replyType = layers.DHCPMsgTypeAck
	default:
		return nil
	}

	return buildDHCPReply(req, replyType)
}

// requestType extracts the DHCP message type option.
func requestType(req *layers.DHCPv4) layers.DHCPMsgType {
	for _, opt := range req.Options {
		if opt.Type == layers.DHCPOptMessageType && len(opt.Data) == 1 {
			return layers.DHCPMsgType(opt.Data[0])
		}
	}
	return layers.DHCPMsgTypeUnspecified
}

// buildDHCPReply assembles the full IPv4/UDP/DHCP reply frame with
// computed checksums.
func buildDHCPReply(req *layers.DHCPv4, msgType layers.DHCPMsgType) []byte {
	reply := &layers.DHCPv4{
		Operation:    layers.DHCPOpReply,
		HardwareType: req.HardwareType,
		HardwareLen:  req.HardwareLen,
		Xid:          req.Xid,
		Secs:         0,
		Flags:        0,
		ClientIP:     net.IPv4zero,
		YourClientIP: dhcpClientIP,
		NextServerIP: dhcpServerIP,
		RelayAgentIP: net.IPv4zero,
		ClientHWAddr: req.ClientHWAddr,
		Options: layers.DHCPOptions{
			layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(msgType)}),
			layers.NewDHCPOption(layers.DHCPOptSubnetMask, dhcpNetmask),
			layers.NewDHCPOption(layers.DHCPOptRouter, dhcpServerIP.To4()),
			layers.NewDHCPOption(layers.DHCPOptLeaseTime, leaseBytes()),
			layers.NewDHCPOption(layers.DHCPOptServerID, dhcpServerIP.To4()),
		},
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    dhcpReplySrcIP,
		DstIP:    dhcpReplyDstIP,
	}
	udp := &layers.UDP{SrcPort: 67, DstPort: 68}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, reply); err != nil {
		return nil
	}
	return buf.Bytes()
}

func leaseBytes() []byte {
	return []byte{
		byte(dhcpLeaseSeconds >> 24),
		byte(dhcpLeaseSeconds >> 16),
		byte(dhcpLeaseSeconds >> 8),
		byte(dhcpLeaseSeconds),
	}
}
