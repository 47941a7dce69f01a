package dns

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(s string) netip.Addr { return netip.MustParseAddr(s) }

func TestKeyNormalization(t *testing.T) {
	a := NewKey(ClassIN, TypeA, "Printer.Local.")
	b := NewKey(ClassIN, TypeA, "printer.local")
	assert.Equal(t, a, b)
	assert.Equal(t, "printer.local", a.Name)
}

func TestKeyMatch(t *testing.T) {
	rr := NewA("printer.local", addr("192.0.2.1"), MDNSHostTTL)

	assert.True(t, NewKey(ClassIN, TypeA, "printer.local").Match(rr))
	assert.True(t, NewKey(ClassIN, TypeANY, "printer.local").Match(rr))
	assert.True(t, NewKey(ClassANY, TypeA, "printer.local").Match(rr))
	assert.True(t, NewKey(ClassIN, TypeA, "PRINTER.LOCAL").Match(rr))

	assert.False(t, NewKey(ClassIN, TypeAAAA, "printer.local").Match(rr))
	assert.False(t, NewKey(ClassIN, TypeA, "other.local").Match(rr))
}

func TestRecordEqual(t *testing.T) {
	a1 := NewA("printer.local", addr("192.0.2.1"), 120)
	a2 := NewA("PRINTER.local", addr("192.0.2.1"), 4500) // TTL not part of identity
	a3 := NewA("printer.local", addr("192.0.2.2"), 120)

	assert.True(t, a1.Equal(a2))
	assert.False(t, a1.Equal(a3))

	p1 := NewPTR("_ipp._tcp.local", "X._ipp._tcp.local", 4500)
	p2 := NewPTR("_ipp._tcp.local", "x._IPP._tcp.local", 4500) // embedded name case-insensitive
	assert.True(t, p1.Equal(p2))

	s1 := NewSRV("x._ipp._tcp.local", 0, 0, 631, "host.local", 4500)
	s2 := NewSRV("x._ipp._tcp.local", 0, 0, 631, "HOST.local", 4500)
	s3 := NewSRV("x._ipp._tcp.local", 0, 0, 632, "host.local", 4500)
	assert.True(t, s1.Equal(s2))
	assert.False(t, s1.Equal(s3))

	t1 := NewTXT("x.local", TXTItems{[]byte("a=1")}, 4500)
	t2 := NewTXT("x.local", TXTItems{[]byte("a=1")}, 4500)
	t3 := NewTXT("x.local", TXTItems{[]byte("A=1")}, 4500) // TXT payload is case-sensitive bytes
	assert.True(t, t1.Equal(t2))
	assert.False(t, t1.Equal(t3))

	// Different types under the same name never compare equal.
	assert.False(t, a1.Equal(p1))
}

func TestNameHelpers(t *testing.T) {
	assert.True(t, NameEqual("A.Local.", "a.local"))
	assert.False(t, NameEqual("a.local", "b.local"))

	assert.True(t, NameEndsWith("x._ipp._tcp.local", "_tcp.local"))
	assert.True(t, NameEndsWith("_TCP.local", "_tcp.local"))
	assert.False(t, NameEndsWith("foo-tcp.local", "_tcp.local"))
	assert.False(t, NameEndsWith("tcp.local", "_tcp.local"))
}

func TestRecordWireRoundTrip(t *testing.T) {
	records := []*ResourceRecord{
		NewA("printer.local", addr("192.0.2.1"), 120),
		NewAAAA("printer.local", addr("2001:db8::1"), 120),
		NewPTR("_ipp._tcp.local", "x._ipp._tcp.local", 4500),
		NewSRV("x._ipp._tcp.local", 10, 20, 631, "printer.local", 4500),
		NewTXT("x._ipp._tcp.local", TXTItems{[]byte("paper=a4"), []byte("duplex")}, 4500),
		NewPlaceholderSOA("a.local"),
	}

	for _, rr := range records {
		wire, err := rr.Marshal()
		require.NoError(t, err, rr.String())

		off := 0
		got, err := ParseRecord(wire, &off)
		require.NoError(t, err, rr.String())
		assert.Equal(t, len(wire), off)
		assert.True(t, rr.Equal(got), "round trip changed %s into %s", rr, got)
	}
}

func TestCacheFlushBitRoundTrip(t *testing.T) {
	rr := NewA("printer.local", addr("192.0.2.1"), 120)
	rr.CacheFlush = true

	wire, err := rr.Marshal()
	require.NoError(t, err)

	off := 0
	got, err := ParseRecord(wire, &off)
	require.NoError(t, err)
	assert.True(t, got.CacheFlush)
	assert.Equal(t, ClassIN, got.Key.Class)
}

func TestEmptyTXT(t *testing.T) {
	rr := NewTXT("x.local", nil, 4500)
	items := rr.Data.(TXTItems)
	require.Len(t, items, 1)
	assert.Empty(t, items[0])

	// On the wire: a single zero length byte.
	wire, err := rr.marshalRData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, wire)
}

func TestPacketRoundTrip(t *testing.T) {
	q := Packet{
		Header: Header{Flags: MDNSResponseFlags},
		Questions: []Question{
			{Key: NewKey(ClassIN, TypeANY, "printer.local"), UnicastResponse: true},
		},
		Answers: []*ResourceRecord{
			NewA("printer.local", addr("192.0.2.1"), 120),
		},
		Authorities: []*ResourceRecord{
			NewSRV("x._ipp._tcp.local", 0, 0, 631, "printer.local", 4500),
		},
	}

	wire, err := q.Marshal()
	require.NoError(t, err)

	got, err := ParsePacket(wire)
	require.NoError(t, err)
	assert.True(t, got.IsResponse())
	require.Len(t, got.Questions, 1)
	assert.True(t, got.Questions[0].UnicastResponse)
	assert.Equal(t, TypeANY, got.Questions[0].Key.Type)
	require.Len(t, got.Answers, 1)
	require.Len(t, got.Authorities, 1)
	assert.True(t, q.Answers[0].Equal(got.Answers[0]))
	assert.True(t, q.Authorities[0].Equal(got.Authorities[0]))
}

func TestDecodeNameCompression(t *testing.T) {
	// "printer.local" at offset 12, then a pointer to it.
	var msg []byte
	msg = append(msg, make([]byte, 12)...) // fake header
	name, err := EncodeName("printer.local")
	require.NoError(t, err)
	msg = append(msg, name...)
	ptrOff := len(msg)
	msg = append(msg, 0xC0, 12)

	off := ptrOff
	got, err := DecodeName(msg, &off)
	require.NoError(t, err)
	assert.Equal(t, "printer.local", got)
	assert.Equal(t, ptrOff+2, off)
}

func TestDecodeNameRejectsPointerLoop(t *testing.T) {
	msg := []byte{0xC0, 0x00}
	off := 0
	_, err := DecodeName(msg, &off)
	assert.ErrorIs(t, err, ErrWire)
}

func TestEncodeNameLimits(t *testing.T) {
	_, err := EncodeName("")
	assert.ErrorIs(t, err, ErrWire)

	_, err = EncodeName("a..b")
	assert.ErrorIs(t, err, ErrWire)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err = EncodeName(string(long) + ".local")
	assert.ErrorIs(t, err, ErrWire)
}

func TestPseudoChecks(t *testing.T) {
	assert.True(t, TypeANY.IsPseudo())
	assert.True(t, TypeOPT.IsPseudo())
	assert.True(t, TypeAXFR.IsPseudo())
	assert.False(t, TypeA.IsPseudo())
	assert.False(t, TypeSRV.IsPseudo())

	assert.True(t, ClassANY.IsPseudo())
	assert.False(t, ClassIN.IsPseudo())
}

func TestRecordString(t *testing.T) {
	rr := NewSRV("x._ipp._tcp.local", 1, 2, 631, "printer.local", 4500)
	assert.Equal(t, "x._ipp._tcp.local 4500 IN SRV 1 2 631 printer.local", rr.String())

	a := NewA("printer.local", addr("192.0.2.1"), 120)
	assert.Equal(t, "printer.local 120 IN A 192.0.2.1", a.String())
}
