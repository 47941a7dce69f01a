// Package dns provides the resource record model and wire codec used by the
// multicast DNS zone and scope layers.
//
// Standards Compliance:
//
//   - RFC 1035: Domain Names - Implementation and Specification (wire format)
//   - RFC 2782: SRV resource records
//   - RFC 3596: AAAA resource records
//   - RFC 6762: Multicast DNS (ANY matching, cache-flush bit, default TTLs)
//   - RFC 6763: DNS-Based Service Discovery (TXT item semantics)
//
// Records are modeled as a ResourceKey (class, type, normalized name) plus a
// parsed, type-specific payload. The zone layer relies on ResourceKey being a
// comparable value type and on ResourceRecord.Equal comparing parsed payloads
// rather than wire bytes.
//
// Error Handling:
//
// All errors wrap the ErrWire sentinel using fmt.Errorf("%w: ...") so callers
// can match with errors.Is while keeping operational context.
package dns

import "errors"

var (
	// ErrWire is the sentinel error for DNS wire format violations.
	// Wrap with fmt.Errorf("%w: context", ErrWire) to add context.
	ErrWire = errors.New("dns wire error")
)
