package dns

import (
	"encoding/binary"
	"fmt"
)

// Question represents a DNS question section entry (RFC 1035 Section 4.1.2).
// In mDNS the top bit of the class field is the QU ("unicast response")
// bit (RFC 6762 Section 5.4); it is stripped on parse and tracked separately.
type Question struct {
	Key             ResourceKey
	UnicastResponse bool
}

// Marshal serializes the question to DNS wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Key.Name)
	if err != nil {
		return nil, err
	}
	class := uint16(q.Key.Class)
	if q.UnicastResponse {
		class |= UnicastResponseBit
	}
	b := make([]byte, 0, len(name)+4)
	b = append(b, name...)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(q.Key.Type))
	binary.BigEndian.PutUint16(buf[2:4], class)
	b = append(b, buf...)
	return b, nil
}

// ParseQuestion parses a question from the message at the given offset,
// advancing *off past it. The name is normalized for case-insensitive
// comparisons and the QU bit is split off the class.
func ParseQuestion(msg []byte, off *int) (Question, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Question{}, err
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: unexpected EOF while reading DNS question", ErrWire)
	}
	typ := RecordType(binary.BigEndian.Uint16(msg[*off : *off+2]))
	rawClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	*off += 4

	unicast := rawClass&UnicastResponseBit != 0
	class := RecordClass(rawClass &^ UnicastResponseBit)

	return Question{
		Key:             NewKey(class, typ, name),
		UnicastResponse: unicast,
	}, nil
}
