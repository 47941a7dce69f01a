package scope

import (
	"math/rand"
	"time"

	"github.com/herald-dns/herald/internal/dns"
	"github.com/herald-dns/herald/internal/zone"
)

// Probe schedule per RFC 6762 Section 8.1: three queries 250 ms apart, with
// the claim considered safe 250 ms after the last one.
const (
	probeCount    = 3
	probeInterval = 250 * time.Millisecond
)

// receivedInfo captures the addressing of the reply that completed a
// transaction, for the zone's tie-break.
type receivedInfo struct {
	sender      []byte
	destination []byte
}

// Transaction is one ANY-type probe query multiplexed across every zone item
// that shares the probed name. It implements zone.ProbeTransaction.
//
// All methods assume the owning scope's lock is held; the probe timer
// reacquires it before touching the transaction.
type Transaction struct {
	scope *Scope
	key   dns.ResourceKey
	state zone.TransactionState

	// Listener sets. Items move from notifyItems to notifyItemsDone as
	// they are notified, so each item sees exactly one notification per
	// probe lifecycle.
	notifyItems     map[*zone.Item]struct{}
	notifyItemsDone map[*zone.Item]struct{}

	probesSent int
	timer      *time.Timer
	received   *receivedInfo
}

func newTransaction(s *Scope, key dns.ResourceKey) *Transaction {
	return &Transaction{
		scope:           s,
		key:             key,
		state:           zone.TransactionNull,
		notifyItems:     make(map[*zone.Item]struct{}),
		notifyItemsDone: make(map[*zone.Item]struct{}),
	}
}

// State returns the transaction's current state.
func (t *Transaction) State() zone.TransactionState { return t.state }

// Received returns the reply addressing when the transaction succeeded.
func (t *Transaction) Received() (sender, destination []byte, ok bool) {
	if t.state != zone.TransactionSuccess || t.received == nil {
		return nil, nil, false
	}
	return t.received.sender, t.received.destination, true
}

// Start sends the first probe and arms the retry timer. A send failure
// completes the transaction synchronously with Aborted before the error is
// returned, which is why callers wrap Start in the item's reentrancy guard.
func (t *Transaction) Start() error {
	if t.state != zone.TransactionNull {
		return nil
	}
	t.state = zone.TransactionPending

	if err := t.sendProbe(); err != nil {
		t.complete(zone.TransactionAborted)
		return err
	}
	t.armTimer()
	return nil
}

// sendProbe multicasts one probe: an ANY question for the claimed name with
// the proposed records in the authority section (RFC 6762 Section 8.2).
func (t *Transaction) sendProbe() error {
	q := dns.Question{Key: t.key, UnicastResponse: true}

	var authority []*dns.ResourceRecord
	for i := range t.notifyItems {
		authority = append(authority, i.Record())
	}

	pkt := dns.Packet{
		Questions:   []dns.Question{q},
		Authorities: authority,
	}
	wire, err := pkt.Marshal()
	if err != nil {
		return err
	}

	t.probesSent++
	t.scope.logger.Debug("sending probe", "key", t.key.String(), "attempt", t.probesSent)
	return t.scope.send(wire, nil)
}

// armTimer schedules the next probe (or completion) with a little jitter so
// parallel claimants do not stay in lockstep.
func (t *Transaction) armTimer() {
	delay := probeInterval + time.Duration(rand.Int63n(int64(probeInterval/5)))
	t.timer = time.AfterFunc(delay, t.onTimer)
}

// onTimer runs outside the scope lock and drives the probe schedule: send
// the next probe, or declare the claim unopposed.
func (t *Transaction) onTimer() {
	t.scope.mu.Lock()
	defer t.scope.mu.Unlock()

	if t.state != zone.TransactionPending {
		return
	}

	if t.probesSent < probeCount {
		if err := t.sendProbe(); err != nil {
			t.scope.logger.Warn("probe send failed", "key", t.key.String(), "err", err)
			t.complete(zone.TransactionAborted)
			return
		}
		t.armTimer()
		return
	}

	// All probes out, nobody answered.
	t.complete(zone.TransactionFailure)
}

// succeed records the conflicting reply and completes the transaction.
func (t *Transaction) succeed(sender, destination []byte) {
	if !t.state.IsLive() {
		return
	}
	t.received = &receivedInfo{sender: sender, destination: destination}
	t.complete(zone.TransactionSuccess)
}

// complete moves the transaction to a terminal state and notifies every
// pending listener exactly once. Each notification runs to completion before
// the next listener is visited.
func (t *Transaction) complete(state zone.TransactionState) {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state = state

	for i := range t.notifyItems {
		delete(t.notifyItems, i)
		t.notifyItemsDone[i] = struct{}{}
		i.Notify()
	}

	t.scope.gcTransaction(t)
}

// detach drops an item from both listener sets.
func (t *Transaction) detach(i *zone.Item) {
	delete(t.notifyItems, i)
	delete(t.notifyItemsDone, i)
}

// idle reports whether no item listens on the transaction anymore.
func (t *Transaction) idle() bool {
	return len(t.notifyItems) == 0 && len(t.notifyItemsDone) == 0
}

// cancel aborts a live transaction without notifying anybody; used when the
// last listener detached.
func (t *Transaction) cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.state.IsLive() {
		t.state = zone.TransactionAborted
	}
}
