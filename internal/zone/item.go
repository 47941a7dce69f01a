package zone

import (
	"bytes"

	"github.com/herald-dns/herald/internal/dns"
)

// State is the probe state of one zone item.
type State int

const (
	// StateProbing: the record is not yet confirmed unique on the link.
	// It is served (tentatively) but not announced.
	StateProbing State = iota
	// StateEstablished: uniqueness confirmed; served and announced.
	StateEstablished
	// StateVerifying: was established, re-probing after a suspected
	// conflict. Still served while the probe runs.
	StateVerifying
	// StateWithdrawn: lost a tie-break. Terminal; no longer served.
	StateWithdrawn
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateEstablished:
		return "established"
	case StateVerifying:
		return "verifying"
	case StateWithdrawn:
		return "withdrawn"
	}
	return "unknown"
}

// visible reports whether the item participates in lookups.
func (s State) visible() bool {
	switch s {
	case StateProbing, StateEstablished, StateVerifying:
		return true
	}
	return false
}

// Item is one claimed resource record plus its probe state. Items are owned
// exclusively by their zone and linked into the zone's by-key and by-name
// chains; external code touches them only through the zone API and the
// Notify/Conflict entry points invoked by the probe coordinator.
type Item struct {
	zone           *Zone
	rr             *dns.ResourceRecord
	state          State
	probingEnabled bool

	// probe is the currently attached probe transaction; non-nil only in
	// StateProbing and StateVerifying. The transaction does not own us
	// and we do not own it; stopProbe breaks the link from our side.
	probe ProbeTransaction

	// blockReady suppresses reentrant Notify while the transaction's
	// Start call is on the stack; startProbe re-delivers the
	// notification once the attachment is recorded.
	blockReady int

	nextByKey, prevByKey   *Item
	nextByName, prevByName *Item
}

// Record returns the item's resource record.
func (i *Item) Record() *dns.ResourceRecord { return i.rr }

// State returns the item's probe state.
func (i *Item) State() State { return i.state }

// ProbeKey returns the key of the probe transaction covering this item: an
// ANY-type query on the record's owner name, so items sharing a name share
// one transaction (RFC 6762 Section 8.1).
func (i *Item) ProbeKey() dns.ResourceKey {
	return dns.NewKey(i.rr.Key.Class, dns.TypeANY, i.rr.Key.Name)
}

// startProbe attaches the item to its probe transaction, starting the
// transaction if it is still in the null state. Start may complete the
// transaction synchronously and re-enter Notify; blockReady holds that
// notification back until the attachment is recorded, then the trailing
// Notify call delivers it exactly once.
func (i *Item) startProbe() error {
	if i.probe != nil {
		return nil
	}

	t, err := i.zone.coordinator.Attach(i)
	if err != nil {
		return err
	}
	i.probe = t

	if t.State() == TransactionNull {
		i.blockReady++
		err = t.Start()
		i.blockReady--

		if err != nil {
			i.stopProbe()
			return err
		}
	}

	i.Notify()
	return nil
}

// stopProbe breaks the item<->transaction link from the item's side and lets
// the coordinator drop us from the listener sets and GC the transaction.
func (i *Item) stopProbe() {
	if i.probe == nil {
		return
	}
	i.probe = nil
	i.zone.coordinator.Detach(i)
}

// Notify is invoked by the probe coordinator whenever the item's transaction
// changes state, and by startProbe after attaching. It is idempotent across
// the live states so listeners can be attached at any time.
func (i *Item) Notify() {
	if i.probe == nil {
		return
	}
	if i.blockReady > 0 {
		return
	}

	st := i.probe.State()
	if st.IsLive() {
		return
	}

	if st == TransactionSuccess {
		// The probe got a positive reply: someone else claims an RR
		// on this name. Decide who keeps it.
		if i.lostTieBreak() {
			i.Conflict()
			return
		}
		i.zone.logger.Debug("got a probe reply but the peer lost the tie-break",
			"rr", i.rr.String())
	}

	i.zone.logger.Debug("record successfully probed", "rr", i.rr.String())

	i.stopProbe()
	i.state = StateEstablished
}

// lostTieBreak applies the RFC 6762 Section 8.2 simultaneous-probe rule to a
// positive probe reply. DNS-SD service-enumeration PTRs are shared records
// and never lose. An item that was never established gives up immediately.
// Otherwise the peer wins iff its source address compares bytewise greater
// than the address the reply was delivered to.
func (i *Item) lostTieBreak() bool {
	if i.isServiceEnumerationPTR() {
		return false
	}

	if i.state != StateEstablished && i.state != StateVerifying {
		i.zone.logger.Debug("got a positive probe reply for a not yet established record, we lost",
			"rr", i.rr.String())
		return true
	}

	sender, destination, ok := i.probe.Received()
	if !ok {
		return false
	}
	if bytes.Compare(sender, destination) > 0 {
		i.zone.logger.Debug("peer claims an established record from a greater address, we lost",
			"rr", i.rr.String())
		return true
	}
	return false
}

// isServiceEnumerationPTR reports whether the record is a DNS-SD service
// PTR (target under _tcp.local or _udp.local). Those are intentionally
// published by many hosts at once (RFC 6763 Section 4).
func (i *Item) isServiceEnumerationPTR() bool {
	if i.rr.Key.Type != dns.TypePTR {
		return false
	}
	target := i.rr.PTRTarget()
	return dns.NameEndsWith(target, "_tcp.local") || dns.NameEndsWith(target, "_udp.local")
}

// Conflict withdraws the item after a lost tie-break or a scope-level
// conflict notification. If the lost name is the host's own hostname, a
// fresh candidate hostname is published.
func (i *Item) Conflict() {
	if !i.state.visible() {
		return
	}

	i.zone.logger.Info("detected conflict", "rr", i.rr.String())

	i.stopProbe()
	i.state = StateWithdrawn

	if i.zone.host != nil && i.zone.host.IsOwnHostname(i.rr.Key.Name) {
		i.zone.host.NextHostname()
	}
}

// verify re-probes an established item to confirm it is still uniquely ours.
// If the probe cannot be started the item falls back to established.
func (i *Item) verify() {
	if i.state != StateEstablished {
		return
	}

	i.zone.logger.Debug("verifying record", "rr", i.rr.String())

	i.state = StateVerifying
	if err := i.startProbe(); err != nil {
		i.zone.logger.Error("failed to start probing for record verification",
			"rr", i.rr.String(), "err", err)
		i.state = StateEstablished
	}
}
