// Package zone holds the set of resource records the local host claims as
// authoritative on one multicast scope, and runs the mDNS probe -> announce
// -> defend lifecycle that keeps those claims unique on the link
// (RFC 6762 Sections 8-9).
//
// The zone is strictly a library: transmitting probes and receiving replies
// is the job of the ProbeCoordinator the scope provides. All operations run
// to completion on the scope's serialization domain; the zone takes no locks
// of its own.
package zone

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/herald-dns/herald/internal/dns"
)

// ZoneMax caps the number of items a zone will hold. Purely defensive; a
// host advertising more than this many records is misconfigured.
const ZoneMax = 1024

var (
	// ErrInvalid marks attempts to insert pseudo-class/pseudo-type
	// records or records with malformed names.
	ErrInvalid = errors.New("invalid record")

	// ErrCapacity marks inserts that would exceed ZoneMax.
	ErrCapacity = errors.New("zone capacity exceeded")
)

// Zone owns a set of Items indexed two ways: by exact resource key and by
// owner name. Each item sits in exactly one chain of each index; the chain
// heads live directly in the maps and are swapped on unlink so that a map
// entry exists iff its chain is non-empty.
type Zone struct {
	coordinator ProbeCoordinator
	host        Host
	logger      *slog.Logger

	byKey  map[dns.ResourceKey]*Item
	byName map[string]*Item
	size   int
}

// New creates an empty zone bound to its collaborators. The coordinator is
// required; host may be nil when hostname conflict handling is not wanted
// (tests, tools).
func New(coordinator ProbeCoordinator, host Host, logger *slog.Logger) *Zone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Zone{
		coordinator: coordinator,
		host:        host,
		logger:      logger,
		byKey:       make(map[dns.ResourceKey]*Item),
		byName:      make(map[string]*Item),
	}
}

// get returns the item holding a record deep-equal to rr, or nil.
func (z *Zone) get(rr *dns.ResourceRecord) *Item {
	for i := z.byKey[rr.Key]; i != nil; i = i.nextByKey {
		if i.rr.Equal(rr) {
			return i
		}
	}
	return nil
}

// link prepends the item to both index chains.
func (z *Zone) link(i *Item) {
	if first := z.byKey[i.rr.Key]; first != nil {
		i.nextByKey = first
		first.prevByKey = i
	}
	z.byKey[i.rr.Key] = i

	if first := z.byName[i.rr.Key.Name]; first != nil {
		i.nextByName = first
		first.prevByName = i
	}
	z.byName[i.rr.Key.Name] = i

	z.size++
}

// unlink removes the item from both index chains, swapping the stored head
// when the head itself is removed and dropping the map entry when the chain
// empties.
func (z *Zone) unlink(i *Item) {
	if i.prevByKey != nil {
		i.prevByKey.nextByKey = i.nextByKey
	} else if i.nextByKey != nil {
		z.byKey[i.rr.Key] = i.nextByKey
	} else {
		delete(z.byKey, i.rr.Key)
	}
	if i.nextByKey != nil {
		i.nextByKey.prevByKey = i.prevByKey
	}
	i.nextByKey, i.prevByKey = nil, nil

	if i.prevByName != nil {
		i.prevByName.nextByName = i.nextByName
	} else if i.nextByName != nil {
		z.byName[i.rr.Key.Name] = i.nextByName
	} else {
		delete(z.byName, i.rr.Key.Name)
	}
	if i.nextByName != nil {
		i.nextByName.prevByName = i.prevByName
	}
	i.nextByName, i.prevByName = nil, nil

	z.size--
}

// removeItem detaches the item's probe and drops it from both indexes.
func (z *Zone) removeItem(i *Item) {
	i.stopProbe()
	z.unlink(i)
}

// Put inserts rr into the zone. Inserting a record deep-equal to one already
// present is a no-op. When probe is true and no sibling on the same name is
// already established, the new item enters the probing state and attaches to
// a probe transaction; an attach failure removes the item again and is
// returned to the caller. When probe is false, or an established name
// sibling exists, the item is established immediately (probing is
// name-scoped, not key-scoped, per RFC 6762 Section 8.1).
func (z *Zone) Put(rr *dns.ResourceRecord, probe bool) error {
	if rr == nil {
		return fmt.Errorf("%w: nil record", ErrInvalid)
	}
	if rr.Key.Class.IsPseudo() || rr.Key.Type.IsPseudo() {
		return fmt.Errorf("%w: pseudo class or type in %s", ErrInvalid, rr.Key)
	}
	if !dns.ValidName(rr.Key.Name) {
		return fmt.Errorf("%w: malformed name %q", ErrInvalid, rr.Key.Name)
	}

	if z.get(rr) != nil {
		return nil
	}

	if z.size >= ZoneMax {
		return fmt.Errorf("%w: %d items", ErrCapacity, z.size)
	}

	i := &Item{zone: z, rr: rr, probingEnabled: probe}
	z.link(i)

	if !probe {
		i.state = StateEstablished
		return nil
	}

	// If an RR with the same name is already established it has been
	// probed, and this record rides along without probing again.
	established := false
	for j := z.byName[i.rr.Key.Name]; j != nil; j = j.nextByName {
		if j != i && j.state == StateEstablished {
			established = true
			break
		}
	}

	if established {
		i.state = StateEstablished
		return nil
	}

	i.state = StateProbing
	if err := i.startProbe(); err != nil {
		z.removeItem(i)
		return err
	}
	return nil
}

// Remove drops the item holding a record deep-equal to rr, if any.
func (z *Zone) Remove(rr *dns.ResourceRecord) {
	if i := z.get(rr); i != nil {
		z.removeItem(i)
	}
}

// Flush removes all items; both indexes end empty.
func (z *Zone) Flush() {
	for _, i := range z.byKey {
		for i != nil {
			next := i.nextByKey
			z.removeItem(i)
			i = next
		}
	}
}

// AnswerRR is one record of a lookup result.
type AnswerRR struct {
	RR            *dns.ResourceRecord
	Ifindex       int
	Authenticated bool
}

// LookupResult carries the outcome of a zone lookup. Answer holds the
// matching records; SOA holds at most one synthesized negative placeholder
// when the name is visible but nothing matched the type or class. Tentative
// is true iff every contributing item was still probing.
type LookupResult struct {
	Answer    []AnswerRR
	SOA       []AnswerRR
	Tentative bool
}

// Empty reports whether the result carries neither answers nor an SOA.
func (r LookupResult) Empty() bool {
	return len(r.Answer) == 0 && len(r.SOA) == 0
}

// Lookup answers a local query from the zone. ANY-type or ANY-class keys
// walk the name chain and match each record; specific keys hit the key chain
// directly, falling back to the name chain only to decide whether the
// negative SOA placeholder applies. Withdrawn items are invisible. If every
// contributing item was still probing and the caller did not ask for
// tentative answers, the result is empty. The given ifindex is stamped on
// every returned record.
func (z *Zone) Lookup(key dns.ResourceKey, ifindex int, wantTentative bool) LookupResult {
	var res LookupResult
	tentative := true
	needSOA := false

	z.logger.Debug("zone lookup", "key", key.String())

	if key.Type == dns.TypeANY || key.Class == dns.ClassANY {
		// Generic match: walk the name chain and match manually.
		found := false
		for j := z.byName[key.Name]; j != nil; j = j.nextByName {
			if !j.state.visible() {
				continue
			}
			found = true
			if j.state != StateProbing {
				tentative = false
			}
			if key.Match(j.rr) {
				res.Answer = append(res.Answer, AnswerRR{RR: j.rr, Ifindex: ifindex, Authenticated: true})
			}
		}
		needSOA = found && len(res.Answer) == 0
	} else {
		// Specific match: the key chain has exactly the candidates.
		found := false
		for j := z.byKey[key]; j != nil; j = j.nextByKey {
			if !j.state.visible() {
				continue
			}
			found = true
			if j.state != StateProbing {
				tentative = false
			}
			res.Answer = append(res.Answer, AnswerRR{RR: j.rr, Ifindex: ifindex, Authenticated: true})
		}

		if !found {
			for j := z.byName[key.Name]; j != nil; j = j.nextByName {
				if !j.state.visible() {
					continue
				}
				if j.state != StateProbing {
					tentative = false
				}
				needSOA = true
			}
		}
	}

	if len(res.Answer) == 0 && !needSOA {
		return LookupResult{}
	}

	if needSOA {
		res.SOA = append(res.SOA, AnswerRR{RR: dns.NewPlaceholderSOA(key.Name), Ifindex: ifindex})
	}

	if tentative && !wantTentative {
		return LookupResult{}
	}

	res.Tentative = tentative
	return res
}

// CheckConflicts inspects a record observed from somebody else on the link.
// Nothing happens if we hold no records on that name, or if the record is
// deep-equal to one of ours (that is our own echo). Otherwise every one of
// our items on the name that differs from rr is re-verified. Returns the
// number of items sent to verification.
func (z *Zone) CheckConflicts(rr *dns.ResourceRecord) int {
	first := z.byName[rr.Key.Name]
	if first == nil {
		return 0
	}

	if z.get(rr) != nil {
		return 0
	}

	// Somebody else has RRs for a name we thought was uniquely ours.
	// Start probing again.
	c := 0
	for i := first; i != nil; i = i.nextByName {
		if i.rr.Equal(rr) {
			continue
		}
		i.verify()
		c++
	}
	return c
}

// VerifyConflicts re-verifies every item on the given key's name, typically
// after an external notification about a possible conflict.
func (z *Zone) VerifyConflicts(key dns.ResourceKey) int {
	c := 0
	for i := z.byName[key.Name]; i != nil; i = i.nextByName {
		i.verify()
		c++
	}
	return c
}

// VerifyAll re-verifies every item in the zone.
func (z *Zone) VerifyAll() {
	for _, first := range z.byKey {
		for i := first; i != nil; i = i.nextByKey {
			i.verify()
		}
	}
}

// IsEmpty reports whether the zone holds no items.
func (z *Zone) IsEmpty() bool {
	return z.size == 0
}

// Size returns the number of items in the zone.
func (z *Zone) Size() int {
	return z.size
}

// Established returns the records currently in the established state, for
// announcement by the scope.
func (z *Zone) Established() []*dns.ResourceRecord {
	var out []*dns.ResourceRecord
	for _, first := range z.byKey {
		for i := first; i != nil; i = i.nextByKey {
			if i.state == StateEstablished {
				out = append(out, i.rr)
			}
		}
	}
	return out
}

// Items returns all items, sorted by owner name then type for deterministic
// iteration. Used by Dump and by introspection surfaces.
func (z *Zone) Items() []*Item {
	items := make([]*Item, 0, z.size)
	for _, first := range z.byKey {
		for i := first; i != nil; i = i.nextByKey {
			items = append(items, i)
		}
	}
	sort.Slice(items, func(a, b int) bool {
		ka, kb := items[a].rr.Key, items[b].rr.Key
		if ka.Name != kb.Name {
			return ka.Name < kb.Name
		}
		return ka.Type < kb.Type
	})
	return items
}

// Dump writes one textual record per line.
func (z *Zone) Dump(w io.Writer) error {
	for _, i := range z.Items() {
		if _, err := fmt.Fprintf(w, "\t%s\n", i.rr.String()); err != nil {
			return err
		}
	}
	return nil
}
