// Package beacon announces a running server on the network.
//
// Two mechanisms are provided:
//   - UDPAnnouncer sends a CBOR wire.Beacon datagram to a list of
//     addresses every period, starting immediately. Clients watch for
//     beacons to notice servers coming up or restarting (the sequence
//     number restarts at zero).
//   - MDNSAnnouncer registers a _softioc._tcp DNS-SD service so clients
//     can find servers without a configured address list.
//
// AutoAddrList returns the IPv4 broadcast address of every up,
// broadcast-capable interface and is used when auto_beacon_addr_list is
// enabled.
package beacon
