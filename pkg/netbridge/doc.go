// Package netbridge tunnels IP traffic between the watch and the host's
// network.
//
// The watch sends raw IP frames on the Network channel. The bridge feeds
// them into a user-space IP stack (gvisor netstack) behind a virtual tun
// device made of two bounded FIFOs, and relays the resulting TCP/UDP
// streams to the OS socket layer. Outbound frames from the stack ride the
// command pool back to the watch.
//
// Two classes of traffic never reach the stack:
//
//   - DHCP: the watch's DISCOVER/REQUEST are answered directly with a
//     fixed lease (client 10.1.10.2, router 10.1.10.1/24, no DNS option).
//   - ICMPv4 echo requests: answered locally.
//
// Every frame in either direction is metered (5-second sliding window,
// snapshot once per second) and appended to a pcap capture with a
// synthetic Ethernet header so standard tools can open it.
package netbridge
