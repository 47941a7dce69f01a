package scope

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herald-dns/herald/internal/dns"
	"github.com/herald-dns/herald/internal/host"
	"github.com/herald-dns/herald/internal/transport"
	"github.com/herald-dns/herald/internal/zone"
)

// memConn collects sent packets and replays queued datagrams.
type memConn struct {
	sent   []sentPacket
	inbox  chan transport.Datagram
	closed bool
}

type sentPacket struct {
	payload []byte
	dst     net.Addr
}

func newMemConn() *memConn {
	return &memConn{inbox: make(chan transport.Datagram, 16)}
}

func (c *memConn) Send(_ context.Context, packet []byte, dst net.Addr) error {
	cp := make([]byte, len(packet))
	copy(cp, packet)
	c.sent = append(c.sent, sentPacket{payload: cp, dst: dst})
	return nil
}

func (c *memConn) Receive(ctx context.Context) (transport.Datagram, error) {
	select {
	case <-ctx.Done():
		return transport.Datagram{}, ctx.Err()
	case d := <-c.inbox:
		return d, nil
	}
}

func (c *memConn) Close() error {
	c.closed = true
	return nil
}

func (c *memConn) lastSent(t *testing.T) dns.Packet {
	t.Helper()
	require.NotEmpty(t, c.sent)
	p, err := dns.ParsePacket(c.sent[len(c.sent)-1].payload)
	require.NoError(t, err)
	return p
}

func addr(s string) netip.Addr { return netip.MustParseAddr(s) }

func newTestScope(t *testing.T) (*Scope, *memConn) {
	t.Helper()
	conn := newMemConn()
	h := host.New("myhost", nil)
	return New(conn, h, 2, nil), conn
}

func TestPublishSendsProbe(t *testing.T) {
	s, conn := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, true))

	// The first probe goes out synchronously from Start.
	p := conn.lastSent(t)
	require.Len(t, p.Questions, 1)
	assert.Equal(t, dns.TypeANY, p.Questions[0].Key.Type)
	assert.Equal(t, "printer.local", p.Questions[0].Key.Name)
	assert.True(t, p.Questions[0].UnicastResponse)
	require.Len(t, p.Authorities, 1)
	assert.True(t, rr.Equal(p.Authorities[0]))
}

func TestProbeTimeoutEstablishes(t *testing.T) {
	s, _ := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, true))

	key := dns.NewKey(dns.ClassIN, dns.TypeA, "printer.local")
	assert.True(t, s.Lookup(key, false).Empty())

	// Three probes at ~250-300ms spacing: give the schedule time to drain.
	require.Eventually(t, func() bool {
		return !s.Lookup(key, false).Empty()
	}, 3*time.Second, 25*time.Millisecond)
}

func TestConflictingResponseWithdraws(t *testing.T) {
	s, _ := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, true))

	// A remote response claiming the same name, from a greater address.
	remote := dns.NewA("printer.local", addr("192.0.2.99"), dns.MDNSHostTTL)
	resp := dns.Packet{
		Header:  dns.Header{Flags: dns.MDNSResponseFlags},
		Answers: []*dns.ResourceRecord{remote},
	}
	wire, err := resp.Marshal()
	require.NoError(t, err)

	s.processDatagram(context.Background(), transport.Datagram{
		Payload: wire,
		Sender:  addr("192.0.2.99").AsSlice(),
		Dest:    addr("192.0.2.10").AsSlice(),
		Ifindex: 2,
	})

	// Never-established item loses unconditionally.
	assert.True(t, s.Lookup(dns.NewKey(dns.ClassIN, dns.TypeA, "printer.local"), true).Empty())
}

func TestOwnEchoDoesNotCompleteProbe(t *testing.T) {
	s, _ := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, true))

	echo := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	resp := dns.Packet{
		Header:  dns.Header{Flags: dns.MDNSResponseFlags},
		Answers: []*dns.ResourceRecord{echo},
	}
	wire, err := resp.Marshal()
	require.NoError(t, err)

	s.processDatagram(context.Background(), transport.Datagram{
		Payload: wire,
		Sender:  addr("192.0.2.10").AsSlice(),
		Dest:    addr("192.0.2.10").AsSlice(),
	})

	// Still probing: the echo neither withdrew nor established it.
	res := s.Lookup(dns.NewKey(dns.ClassIN, dns.TypeA, "printer.local"), true)
	require.Len(t, res.Answer, 1)
	assert.True(t, res.Tentative)
}

func TestQueryAnsweredFromZone(t *testing.T) {
	s, conn := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, false))

	query := dns.Packet{
		Questions: []dns.Question{{Key: dns.NewKey(dns.ClassIN, dns.TypeA, "printer.local")}},
	}
	wire, err := query.Marshal()
	require.NoError(t, err)

	s.processDatagram(context.Background(), transport.Datagram{
		Payload: wire,
		Sender:  addr("192.0.2.55").AsSlice(),
		Ifindex: 2,
	})

	p := conn.lastSent(t)
	assert.True(t, p.IsResponse())
	assert.NotZero(t, p.Header.Flags&dns.AAFlag)
	require.Len(t, p.Answers, 1)
	assert.True(t, rr.Equal(p.Answers[0]))

	// Multicast response: QU bit was not set.
	assert.Nil(t, conn.sent[len(conn.sent)-1].dst)
}

func TestTentativeRecordsNotServed(t *testing.T) {
	s, conn := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, true))
	before := len(conn.sent)

	query := dns.Packet{
		Questions: []dns.Question{{Key: dns.NewKey(dns.ClassIN, dns.TypeA, "printer.local")}},
	}
	wire, err := query.Marshal()
	require.NoError(t, err)

	s.processDatagram(context.Background(), transport.Datagram{Payload: wire})

	// Still probing: no response may be sent for the tentative record.
	assert.Len(t, conn.sent, before)
}

func TestConflictingProbeTriggersVerification(t *testing.T) {
	s, _ := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, false)) // established without probing

	// Somebody probes for the same name, proposing their own A record.
	probe := dns.Packet{
		Questions: []dns.Question{{
			Key:             dns.NewKey(dns.ClassIN, dns.TypeANY, "printer.local"),
			UnicastResponse: true,
		}},
		Authorities: []*dns.ResourceRecord{
			dns.NewA("printer.local", addr("192.0.2.99"), dns.MDNSHostTTL),
		},
	}
	wire, err := probe.Marshal()
	require.NoError(t, err)

	s.processDatagram(context.Background(), transport.Datagram{
		Payload: wire,
		Sender:  addr("192.0.2.99").AsSlice(),
	})

	s.mu.Lock()
	items := s.zone.Items()
	s.mu.Unlock()
	require.Len(t, items, 1)
	assert.Equal(t, zone.StateVerifying, items[0].State())
}

func TestWithdrawSendsGoodbye(t *testing.T) {
	s, conn := newTestScope(t)

	rr := dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL)
	require.NoError(t, s.Publish(rr, false))
	s.Withdraw(dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL))

	assert.True(t, s.IsEmpty())

	p := conn.lastSent(t)
	require.Len(t, p.Answers, 1)
	assert.Equal(t, uint32(0), p.Answers[0].TTL)
}

func TestAnnounceSetsCacheFlush(t *testing.T) {
	s, conn := newTestScope(t)

	require.NoError(t, s.Publish(dns.NewA("printer.local", addr("192.0.2.10"), dns.MDNSHostTTL), false))
	require.NoError(t, s.Publish(dns.NewPTR("_ipp._tcp.local", "p._ipp._tcp.local", dns.MDNSDefaultTTL), false))

	s.announceOnce()

	p := conn.lastSent(t)
	require.Len(t, p.Answers, 2)
	for _, rr := range p.Answers {
		if rr.Key.Type == dns.TypePTR {
			assert.False(t, rr.CacheFlush, "shared PTR must not carry cache-flush")
		} else {
			assert.True(t, rr.CacheFlush)
		}
	}
}
