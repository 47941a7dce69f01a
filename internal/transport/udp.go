package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"

	"github.com/herald-dns/herald/internal/pool"
)

// recvBuffers recycles receive buffers sized to the RFC 6762 Section 17
// upper bound.
var recvBuffers = pool.New(func() []byte { return make([]byte, 9000) })

// Conn is an mDNS multicast connection on one interface.
type Conn struct {
	conn net.PacketConn
	pc   *ipv4.PacketConn
	dst  *net.UDPAddr
}

// Listen opens the mDNS multicast socket, joining 224.0.0.251 on the given
// interface (nil means the system default). The port is opened with address
// reuse so the daemon can coexist with other responders on the machine.
// Control messages are enabled so Receive can report the destination address
// and arrival interface.
func Listen(ifi *net.Interface) (*Conn, error) {
	group, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(MulticastAddrIPv4, strconv.Itoa(Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve multicast group: %w", err)
	}

	lc := net.ListenConfig{Control: reuseAddr}
	pconn, err := lc.ListenPacket(context.Background(), "udp4", ":"+strconv.Itoa(Port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind multicast socket: %w", err)
	}
	conn := pconn.(*net.UDPConn)

	if err := conn.SetReadBuffer(65536); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set read buffer: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)

	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to join multicast group: %w", err)
	}

	// Destination address and interface index arrive via IP_PKTINFO
	// (Linux) or IP_RECVDSTADDR/IP_RECVIF (BSDs). Best effort: when the
	// platform refuses, Receive degrades to Dest=nil / Ifindex=0.
	_ = pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true)

	if err := pc.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
	}

	return &Conn{conn: conn, pc: pc, dst: group}, nil
}

// Send multicasts a packet to the mDNS group, or unicasts it when dst is
// non-nil (QU-bit responses).
func (c *Conn) Send(ctx context.Context, packet []byte, dst net.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dst == nil {
		dst = c.dst
	}
	n, err := c.conn.WriteTo(packet, dst)
	if err != nil {
		return fmt.Errorf("failed to send %d bytes to %s: %w", len(packet), dst, err)
	}
	if n != len(packet) {
		return fmt.Errorf("partial write: %d/%d bytes", n, len(packet))
	}
	return nil
}

// Receive blocks for the next datagram, honoring the context deadline.
func (c *Conn) Receive(ctx context.Context) (Datagram, error) {
	if err := ctx.Err(); err != nil {
		return Datagram{}, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return Datagram{}, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	buf := recvBuffers.Get()
	defer recvBuffers.Put(buf)

	n, cm, src, err := c.pc.ReadFrom(buf)
	if err != nil {
		return Datagram{}, fmt.Errorf("failed to read from socket: %w", err)
	}

	// The pool owns buf; hand the caller a copy.
	payload := make([]byte, n)
	copy(payload, buf[:n])

	d := Datagram{Payload: payload}
	if udp, ok := src.(*net.UDPAddr); ok {
		d.Sender = ipBytes(udp.IP)
	}
	if cm != nil {
		d.Ifindex = cm.IfIndex
		if cm.Dst != nil {
			d.Dest = ipBytes(cm.Dst)
		}
	}
	return d, nil
}

// Close releases the socket.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ipBytes renders an address in its family-native length, so that two
// addresses of the same family compare bytewise.
func ipBytes(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}
