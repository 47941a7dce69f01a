// Package scope runs one instance of the mDNS protocol on one interface and
// address family. The scope owns the authoritative zone, multiplexes probe
// transactions across zone items sharing a name, answers multicast queries
// from the zone, and announces established records.
//
// Concurrency model: a single mutex serializes every zone operation, probe
// callback and packet. Within that domain each operation runs to completion,
// matching the cooperative event-loop model of the zone's design.
package scope

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/herald-dns/herald/internal/dns"
	"github.com/herald-dns/herald/internal/host"
	"github.com/herald-dns/herald/internal/transport"
	"github.com/herald-dns/herald/internal/zone"
)

// PacketConn is the slice of transport.Conn the scope needs; tests plug in
// an in-memory implementation.
type PacketConn interface {
	Send(ctx context.Context, packet []byte, dst net.Addr) error
	Receive(ctx context.Context) (transport.Datagram, error)
	Close() error
}

// Scope binds a zone to a multicast connection on one interface.
type Scope struct {
	mu     sync.Mutex
	logger *slog.Logger

	conn    PacketConn
	ifindex int

	zone *zone.Zone

	transactions map[dns.ResourceKey]*Transaction
}

// New creates a scope with its own zone. host may be nil for tools that
// never publish the machine's hostname.
func New(conn PacketConn, h *host.Host, ifindex int, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scope{
		logger:       logger,
		conn:         conn,
		ifindex:      ifindex,
		transactions: make(map[dns.ResourceKey]*Transaction),
	}
	var zoneHost zone.Host
	if h != nil {
		zoneHost = h
	}
	s.zone = zone.New((*coordinator)(s), zoneHost, logger)
	return s
}

// coordinator adapts Scope to zone.ProbeCoordinator. Attach and Detach run
// while the scope lock is already held by the zone operation that triggered
// them, so they must not lock again.
type coordinator Scope

// Attach finds or creates the live probe transaction for the item's
// (class, ANY, name) key and registers the item as a pending listener.
func (c *coordinator) Attach(i *zone.Item) (zone.ProbeTransaction, error) {
	s := (*Scope)(c)
	key := i.ProbeKey()

	t := s.transactions[key]
	if t == nil || !t.state.IsLive() {
		t = newTransaction(s, key)
		s.transactions[key] = t
	}
	t.notifyItems[i] = struct{}{}
	return t, nil
}

// Detach removes the item from every transaction it may still be listed on
// and garbage-collects transactions left without listeners.
func (c *coordinator) Detach(i *zone.Item) {
	s := (*Scope)(c)
	for _, t := range s.transactions {
		t.detach(i)
		s.gcTransaction(t)
	}
}

// gcTransaction drops a transaction from the table once nothing references
// it; a live transaction whose last listener detached is cancelled so the
// probe schedule stops.
func (s *Scope) gcTransaction(t *Transaction) {
	if !t.idle() {
		return
	}
	t.cancel()
	if s.transactions[t.key] == t {
		delete(s.transactions, t.key)
	}
}

// send multicasts a packet (or unicasts when dst is non-nil).
func (s *Scope) send(wire []byte, dst net.Addr) error {
	if s.conn == nil {
		return errors.New("scope has no connection")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.conn.Send(ctx, wire, dst)
}

// Publish inserts a record into the zone. With probe set the record goes
// through the probing lifecycle first; otherwise it is served immediately.
func (s *Scope) Publish(rr *dns.ResourceRecord, probe bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.Put(rr, probe)
}

// Withdraw removes a record from the zone and multicasts a goodbye for it
// (TTL zero, RFC 6762 Section 10.1).
func (s *Scope) Withdraw(rr *dns.ResourceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zone.Remove(rr)
	goodbye := *rr
	goodbye.TTL = 0
	pkt := dns.Packet{
		Header:  dns.Header{Flags: dns.MDNSResponseFlags},
		Answers: []*dns.ResourceRecord{&goodbye},
	}
	if wire, err := pkt.Marshal(); err == nil {
		if err := s.send(wire, nil); err != nil {
			s.logger.Debug("goodbye send failed", "rr", rr.String(), "err", err)
		}
	}
}

// Lookup answers a local query from the zone.
func (s *Scope) Lookup(key dns.ResourceKey, wantTentative bool) zone.LookupResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.Lookup(key, s.ifindex, wantTentative)
}

// CheckConflicts reports an observed remote record to the zone.
func (s *Scope) CheckConflicts(rr *dns.ResourceRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.CheckConflicts(rr)
}

// VerifyConflicts re-verifies everything the zone holds on a name.
func (s *Scope) VerifyConflicts(key dns.ResourceKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.VerifyConflicts(key)
}

// VerifyAll re-verifies every record in the zone.
func (s *Scope) VerifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone.VerifyAll()
}

// Flush empties the zone.
func (s *Scope) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone.Flush()
}

// Size returns the number of records in the zone.
func (s *Scope) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.Size()
}

// IsEmpty reports whether the zone is empty.
func (s *Scope) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.IsEmpty()
}

// Dump writes the zone contents, one record per line.
func (s *Scope) Dump(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zone.Dump(w)
}

// Run receives and dispatches mDNS packets until the context is cancelled.
func (s *Scope) Run(ctx context.Context) error {
	for {
		d, err := s.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
		s.processDatagram(ctx, d)
	}
}

// Close tears the scope down: goodbye for everything still established,
// flush the zone, close the socket.
func (s *Scope) Close() error {
	s.mu.Lock()
	for _, rr := range s.zone.Established() {
		goodbye := *rr
		goodbye.TTL = 0
		pkt := dns.Packet{
			Header:  dns.Header{Flags: dns.MDNSResponseFlags},
			Answers: []*dns.ResourceRecord{&goodbye},
		}
		if wire, err := pkt.Marshal(); err == nil {
			_ = s.send(wire, nil)
		}
	}
	s.zone.Flush()
	s.mu.Unlock()

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// processDatagram dispatches one received message under the scope lock.
func (s *Scope) processDatagram(ctx context.Context, d transport.Datagram) {
	p, err := dns.ParseMessageBounded(d.Payload)
	if err != nil {
		s.logger.Debug("dropping malformed mDNS message", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsResponse() {
		s.processResponse(p, d)
		return
	}
	s.processQuery(p, d)
}

// processResponse feeds observed remote records into conflict checking and
// completes pending probe transactions whose name the response claims.
func (s *Scope) processResponse(p dns.Packet, d transport.Datagram) {
	for _, rr := range p.Answers {
		// A positive answer on a probed name means somebody else claims
		// it: hand the reply to the transaction for tie-breaking. Our
		// own echoes must not complete our own probe.
		probeKey := dns.NewKey(rr.Key.Class, dns.TypeANY, rr.Key.Name)
		if t := s.transactions[probeKey]; t != nil && t.state.IsLive() && !s.isOwnRecord(rr) {
			t.succeed(d.Sender, d.Dest)
		}

		s.zone.CheckConflicts(rr)
	}
}

// isOwnRecord reports whether rr is deep-equal to a record we hold.
func (s *Scope) isOwnRecord(rr *dns.ResourceRecord) bool {
	res := s.zone.Lookup(rr.Key, 0, true)
	for _, a := range res.Answer {
		if a.RR.Equal(rr) {
			return true
		}
	}
	return false
}

// processQuery answers questions from the zone and treats probe queries
// (authority section populated) as potential conflicts.
func (s *Scope) processQuery(p dns.Packet, d transport.Datagram) {
	// RFC 6762 Section 8.2: a query with records in the authority section
	// is somebody's probe. If it proposes names we hold, re-verify ours.
	for _, auth := range p.Authorities {
		if s.zone.CheckConflicts(auth) > 0 {
			s.logger.Debug("conflicting probe observed", "key", auth.Key.String())
		}
	}

	resp := dns.Packet{Header: dns.Header{Flags: dns.MDNSResponseFlags}}
	unicast := true
	for _, q := range p.Questions {
		if !q.UnicastResponse {
			unicast = false
		}
		res := s.zone.Lookup(q.Key, d.Ifindex, false)
		for _, a := range res.Answer {
			resp.Answers = append(resp.Answers, a.RR)
		}
		for _, a := range res.SOA {
			resp.Authorities = append(resp.Authorities, a.RR)
		}
	}

	if len(resp.Answers) == 0 && len(resp.Authorities) == 0 {
		return
	}

	wire, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "err", err)
		return
	}

	var dst net.Addr
	if unicast && len(d.Sender) > 0 {
		dst = &net.UDPAddr{IP: net.IP(d.Sender), Port: transport.Port}
	}
	if err := s.send(wire, dst); err != nil {
		s.logger.Warn("failed to send response", "err", err)
	}
}

// Announce multicasts an unsolicited response with every established record,
// twice, one second apart (RFC 6762 Section 8.3). The cache-flush bit is set
// on everything but PTR records, which include the shared service-enumeration
// PTRs.
func (s *Scope) Announce(ctx context.Context) {
	for round := 0; round < 2; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
		s.announceOnce()
	}
}

func (s *Scope) announceOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	established := s.zone.Established()
	if len(established) == 0 {
		return
	}

	pkt := dns.Packet{Header: dns.Header{Flags: dns.MDNSResponseFlags}}
	for _, rr := range established {
		out := *rr
		out.CacheFlush = rr.Key.Type != dns.TypePTR
		pkt.Answers = append(pkt.Answers, &out)
	}

	wire, err := pkt.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal announcement", "err", err)
		return
	}
	if err := s.send(wire, nil); err != nil {
		s.logger.Warn("failed to send announcement", "err", err)
		return
	}
	s.logger.Debug("announced zone records", "count", len(established))
}
