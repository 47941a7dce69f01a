package dns

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ResourceRecord is a ResourceKey plus a parsed, type-specific payload and a
// TTL. Records are immutable once handed to the zone; treat them as values
// shared between the publisher and the zone.
//
// Data holds the parsed payload:
//   - A/AAAA: netip.Addr
//   - CNAME/NS/PTR: string (target name)
//   - SRV: SRVData
//   - SOA: SOAData
//   - MX: MXData
//   - TXT: TXTItems
//   - anything else: []byte (raw RDATA)
type ResourceRecord struct {
	Key        ResourceKey
	TTL        uint32
	CacheFlush bool // mDNS cache-flush bit (RFC 6762 Section 10.2)
	Data       any
}

// SRVData is the payload of an SRV record (RFC 2782).
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// SOAData is the payload of an SOA record (RFC 1035 Section 3.3.13).
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// MXData is the payload of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// TXTItems is the parsed item list of a TXT record: one entry per
// character-string, raw bytes, each at most 255 bytes on the wire.
type TXTItems [][]byte

// EmptyTXT returns the canonical empty TXT payload: a single zero-length
// item. RFC 6763 Section 6.1 requires empty TXT RRs to be published this way
// rather than with no items at all.
func EmptyTXT() TXTItems {
	return TXTItems{[]byte{}}
}

// NewA creates an A record.
func NewA(name string, addr netip.Addr, ttl uint32) *ResourceRecord {
	return &ResourceRecord{Key: NewKey(ClassIN, TypeA, name), TTL: ttl, Data: addr}
}

// NewAAAA creates an AAAA record.
func NewAAAA(name string, addr netip.Addr, ttl uint32) *ResourceRecord {
	return &ResourceRecord{Key: NewKey(ClassIN, TypeAAAA, name), TTL: ttl, Data: addr}
}

// NewPTR creates a PTR record pointing at target.
func NewPTR(name, target string, ttl uint32) *ResourceRecord {
	return &ResourceRecord{Key: NewKey(ClassIN, TypePTR, name), TTL: ttl, Data: target}
}

// NewSRV creates an SRV record.
func NewSRV(name string, priority, weight, port uint16, target string, ttl uint32) *ResourceRecord {
	return &ResourceRecord{
		Key:  NewKey(ClassIN, TypeSRV, name),
		TTL:  ttl,
		Data: SRVData{Priority: priority, Weight: weight, Port: port, Target: target},
	}
}

// NewTXT creates a TXT record. An empty item list is normalized to the
// single zero-length item per RFC 6763 Section 6.1.
func NewTXT(name string, items TXTItems, ttl uint32) *ResourceRecord {
	if len(items) == 0 {
		items = EmptyTXT()
	}
	return &ResourceRecord{Key: NewKey(ClassIN, TypeTXT, name), TTL: ttl, Data: items}
}

// Equal performs deep record equality: equal keys and equal parsed payloads.
// Embedded names compare case-insensitively; TTL and the cache-flush bit are
// not part of record identity (RFC 6762 Section 8.1 probe semantics).
func (rr *ResourceRecord) Equal(other *ResourceRecord) bool {
	if rr == nil || other == nil {
		return rr == other
	}
	if rr.Key != other.Key {
		return false
	}

	switch a := rr.Data.(type) {
	case netip.Addr:
		b, ok := other.Data.(netip.Addr)
		return ok && a == b
	case string:
		b, ok := other.Data.(string)
		return ok && NameEqual(a, b)
	case SRVData:
		b, ok := other.Data.(SRVData)
		return ok && a.Priority == b.Priority && a.Weight == b.Weight &&
			a.Port == b.Port && NameEqual(a.Target, b.Target)
	case SOAData:
		b, ok := other.Data.(SOAData)
		return ok && NameEqual(a.MName, b.MName) && NameEqual(a.RName, b.RName) &&
			a.Serial == b.Serial && a.Refresh == b.Refresh && a.Retry == b.Retry &&
			a.Expire == b.Expire && a.Minimum == b.Minimum
	case MXData:
		b, ok := other.Data.(MXData)
		return ok && a.Preference == b.Preference && NameEqual(a.Exchange, b.Exchange)
	case TXTItems:
		b, ok := other.Data.(TXTItems)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !bytes.Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case []byte:
		b, ok := other.Data.([]byte)
		return ok && bytes.Equal(a, b)
	case nil:
		return other.Data == nil
	}
	return false
}

// PTRTarget returns the target name of a PTR record, or "" if rr is not one.
func (rr *ResourceRecord) PTRTarget() string {
	if rr.Key.Type != TypePTR {
		return ""
	}
	s, _ := rr.Data.(string)
	return s
}

// String renders the record as a single dig-style line, used by the zone
// dump and by log messages.
func (rr *ResourceRecord) String() string {
	var b strings.Builder
	b.WriteString(rr.Key.Name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(rr.TTL), 10))
	b.WriteByte(' ')
	b.WriteString(rr.Key.Class.String())
	b.WriteByte(' ')
	b.WriteString(rr.Key.Type.String())

	switch d := rr.Data.(type) {
	case netip.Addr:
		b.WriteByte(' ')
		b.WriteString(d.String())
	case string:
		b.WriteByte(' ')
		b.WriteString(d)
	case SRVData:
		fmt.Fprintf(&b, " %d %d %d %s", d.Priority, d.Weight, d.Port, d.Target)
	case SOAData:
		fmt.Fprintf(&b, " %s %s %d %d %d %d %d", d.MName, d.RName, d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum)
	case MXData:
		fmt.Fprintf(&b, " %d %s", d.Preference, d.Exchange)
	case TXTItems:
		for _, item := range d {
			fmt.Fprintf(&b, " %q", item)
		}
	case []byte:
		fmt.Fprintf(&b, " \\# %d", len(d))
	}
	return b.String()
}

// ParseRecord parses one resource record from the message at *off, advancing
// *off past it. The mDNS cache-flush bit is stripped from the class and
// recorded separately.
func ParseRecord(msg []byte, off *int) (*ResourceRecord, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	if *off+10 > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF while reading DNS record", ErrWire)
	}
	rrType := RecordType(binary.BigEndian.Uint16(msg[*off : *off+2]))
	rawClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF while reading DNS record rdata", ErrWire)
	}

	cacheFlush := false
	class := RecordClass(rawClass)
	if rrType != TypeOPT && rawClass&CacheFlushBit != 0 {
		cacheFlush = true
		class = RecordClass(rawClass &^ CacheFlushBit)
	}

	rr := &ResourceRecord{Key: NewKey(class, rrType, name), TTL: ttl, CacheFlush: cacheFlush}

	switch rrType {
	case TypeCNAME, TypeNS, TypePTR:
		n, err := DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		if *off-start != rdlen {
			return nil, fmt.Errorf("%w: invalid rdata length for name-based type", ErrWire)
		}
		rr.Data = n
	case TypeA, TypeAAAA:
		want := 4
		if rrType == TypeAAAA {
			want = 16
		}
		if rdlen != want {
			return nil, fmt.Errorf("%w: %s record rdata must be %d bytes, got %d", ErrWire, rrType, want, rdlen)
		}
		addr, ok := netip.AddrFromSlice(msg[*off : *off+rdlen])
		if !ok {
			return nil, fmt.Errorf("%w: invalid address bytes", ErrWire)
		}
		*off += rdlen
		rr.Data = addr
	case TypeSRV:
		if rdlen < 6 {
			return nil, fmt.Errorf("%w: SRV rdata too short", ErrWire)
		}
		var d SRVData
		d.Priority = binary.BigEndian.Uint16(msg[*off : *off+2])
		d.Weight = binary.BigEndian.Uint16(msg[*off+2 : *off+4])
		d.Port = binary.BigEndian.Uint16(msg[*off+4 : *off+6])
		*off += 6
		d.Target, err = DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		if *off-start != rdlen {
			return nil, fmt.Errorf("%w: invalid rdata length for SRV", ErrWire)
		}
		rr.Data = d
	case TypeSOA:
		var d SOAData
		d.MName, err = DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		d.RName, err = DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		if *off+20 > len(msg) {
			return nil, fmt.Errorf("%w: SOA rdata too short", ErrWire)
		}
		d.Serial = binary.BigEndian.Uint32(msg[*off : *off+4])
		d.Refresh = binary.BigEndian.Uint32(msg[*off+4 : *off+8])
		d.Retry = binary.BigEndian.Uint32(msg[*off+8 : *off+12])
		d.Expire = binary.BigEndian.Uint32(msg[*off+12 : *off+16])
		d.Minimum = binary.BigEndian.Uint32(msg[*off+16 : *off+20])
		*off += 20
		if *off-start != rdlen {
			return nil, fmt.Errorf("%w: invalid rdata length for SOA", ErrWire)
		}
		rr.Data = d
	case TypeMX:
		if rdlen < 2 {
			return nil, fmt.Errorf("%w: MX rdata too short", ErrWire)
		}
		pref := binary.BigEndian.Uint16(msg[*off : *off+2])
		*off += 2
		ex, err := DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		if *off-start != rdlen {
			return nil, fmt.Errorf("%w: invalid rdata length for MX", ErrWire)
		}
		rr.Data = MXData{Preference: pref, Exchange: ex}
	case TypeTXT:
		items, err := parseTXTItems(msg[*off : *off+rdlen])
		if err != nil {
			return nil, err
		}
		*off += rdlen
		rr.Data = items
	default:
		b := make([]byte, rdlen)
		copy(b, msg[*off:*off+rdlen])
		*off += rdlen
		rr.Data = b
	}

	return rr, nil
}

// Marshal serializes the record to wire format, re-applying the cache-flush
// bit on the class if set.
func (rr *ResourceRecord) Marshal() ([]byte, error) {
	nameWire, err := EncodeName(rr.Key.Name)
	if err != nil {
		return nil, err
	}

	rdata, err := rr.marshalRData()
	if err != nil {
		return nil, err
	}

	class := uint16(rr.Key.Class)
	if rr.CacheFlush {
		class |= CacheFlushBit
	}

	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], uint16(rr.Key.Type))
	binary.BigEndian.PutUint16(fixed[2:4], class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}

func (rr *ResourceRecord) marshalRData() ([]byte, error) {
	switch d := rr.Data.(type) {
	case netip.Addr:
		if rr.Key.Type == TypeA {
			if !d.Is4() {
				return nil, fmt.Errorf("%w: A record requires an IPv4 address", ErrWire)
			}
			b := d.As4()
			return b[:], nil
		}
		b := d.As16()
		return b[:], nil
	case string:
		if d == "" {
			return nil, fmt.Errorf("%w: name-based record data must be non-empty", ErrWire)
		}
		return EncodeName(d)
	case SRVData:
		target, err := EncodeName(d.Target)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 6, 6+len(target))
		binary.BigEndian.PutUint16(out[0:2], d.Priority)
		binary.BigEndian.PutUint16(out[2:4], d.Weight)
		binary.BigEndian.PutUint16(out[4:6], d.Port)
		return append(out, target...), nil
	case SOAData:
		mname, err := EncodeName(d.MName)
		if err != nil {
			return nil, err
		}
		rname, err := EncodeName(d.RName)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(mname)+len(rname)+20)
		out = append(out, mname...)
		out = append(out, rname...)
		nums := make([]byte, 20)
		binary.BigEndian.PutUint32(nums[0:4], d.Serial)
		binary.BigEndian.PutUint32(nums[4:8], d.Refresh)
		binary.BigEndian.PutUint32(nums[8:12], d.Retry)
		binary.BigEndian.PutUint32(nums[12:16], d.Expire)
		binary.BigEndian.PutUint32(nums[16:20], d.Minimum)
		return append(out, nums...), nil
	case MXData:
		ex, err := EncodeName(d.Exchange)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2, 2+len(ex))
		binary.BigEndian.PutUint16(out[0:2], d.Preference)
		return append(out, ex...), nil
	case TXTItems:
		return marshalTXTItems(d)
	case []byte:
		return d, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unsupported payload type %T for %s", ErrWire, rr.Data, rr.Key.Type)
}

func parseTXTItems(rdata []byte) (TXTItems, error) {
	// RFC 1035 Section 3.3.14: one or more character-strings. An empty
	// RDATA section is tolerated on parse and yields the canonical empty
	// item list.
	if len(rdata) == 0 {
		return EmptyTXT(), nil
	}
	var items TXTItems
	for off := 0; off < len(rdata); {
		l := int(rdata[off])
		off++
		if off+l > len(rdata) {
			return nil, fmt.Errorf("%w: TXT character-string exceeds rdata", ErrWire)
		}
		item := make([]byte, l)
		copy(item, rdata[off:off+l])
		items = append(items, item)
		off += l
	}
	return items, nil
}

func marshalTXTItems(items TXTItems) ([]byte, error) {
	if len(items) == 0 {
		items = EmptyTXT()
	}
	total := 0
	for _, item := range items {
		total += 1 + len(item)
	}
	out := make([]byte, 0, total)
	for _, item := range items {
		if len(item) > 255 {
			return nil, fmt.Errorf("%w: TXT character-string cannot exceed 255 bytes", ErrWire)
		}
		out = append(out, byte(len(item)))
		out = append(out, item...)
	}
	return out, nil
}
