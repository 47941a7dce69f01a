// Package transport manages the UDP multicast sockets used for mDNS
// (224.0.0.251:5353, RFC 6762 Section 5).
//
// Besides the payload and the sender, Receive reports the destination
// address and the interface a datagram arrived on: the probe tie-break
// compares the peer's source address against the address the reply was
// delivered to, and answers are scoped per interface.
package transport

import "errors"

// MulticastAddrIPv4 is the mDNS IPv4 multicast group (RFC 6762 Section 5).
const MulticastAddrIPv4 = "224.0.0.251"

// Port is the mDNS UDP port.
const Port = 5353

var (
	// ErrClosed marks operations on a closed connection.
	ErrClosed = errors.New("transport closed")
)

// Datagram is one received mDNS message with its addressing metadata.
type Datagram struct {
	Payload []byte
	Sender  []byte // source IP address bytes (4 or 16)
	Dest    []byte // destination IP address bytes, when recoverable
	Ifindex int    // receiving interface, 0 when unknown
}
