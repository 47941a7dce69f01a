package dns

import "github.com/herald-dns/herald/internal/helpers"

// Packet represents a complete DNS message (RFC 1035 Section 4).
//
// A DNS packet consists of a header and four sections:
//   - Questions: What the sender is asking
//   - Answers: Resource records answering the question
//   - Authorities: For mDNS probes, the records the sender proposes to claim
//   - Additionals: Extra records
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []*ResourceRecord
	Authorities []*ResourceRecord
	Additionals []*ResourceRecord
}

// Marshal serializes the packet to DNS wire format (big-endian). Section
// counts are derived from the slice lengths, not from p.Header.
func (p Packet) Marshal() ([]byte, error) {
	h := Header{
		ID:      p.Header.ID,
		Flags:   p.Header.Flags,
		QDCount: helpers.ClampIntToUint16(len(p.Questions)),
		ANCount: helpers.ClampIntToUint16(len(p.Answers)),
		NSCount: helpers.ClampIntToUint16(len(p.Authorities)),
		ARCount: helpers.ClampIntToUint16(len(p.Additionals)),
	}

	hb, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	// Estimate capacity: header(12) + question(~50) + records(~100 each)
	estimatedSize := HeaderSize + len(p.Questions)*50 + (len(p.Answers)+len(p.Authorities)+len(p.Additionals))*100
	out := make([]byte, 0, estimatedSize)
	out = append(out, hb...)
	for _, q := range p.Questions {
		qb, err := q.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, qb...)
	}
	for _, section := range [][]*ResourceRecord{p.Answers, p.Authorities, p.Additionals} {
		for _, rr := range section {
			b, err := rr.Marshal()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// ParsePacket parses a complete DNS message.
func ParsePacket(msg []byte) (Packet, error) {
	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}

	p := Packet{Header: h}

	// Cap initial allocation to avoid DoS with large counts in the header
	// but a small actual packet.
	limitCount := func(count uint16, limit int) int {
		if int(count) > limit {
			return limit
		}
		return int(count)
	}

	p.Questions = make([]Question, 0, limitCount(h.QDCount, MaxQuestions))
	for i := uint16(0); i < h.QDCount; i++ {
		q, err := ParseQuestion(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Questions = append(p.Questions, q)
	}
	p.Answers = make([]*ResourceRecord, 0, limitCount(h.ANCount, MaxRRPerSection))
	for i := uint16(0); i < h.ANCount; i++ {
		rr, err := ParseRecord(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Answers = append(p.Answers, rr)
	}
	p.Authorities = make([]*ResourceRecord, 0, limitCount(h.NSCount, MaxRRPerSection))
	for i := uint16(0); i < h.NSCount; i++ {
		rr, err := ParseRecord(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Authorities = append(p.Authorities, rr)
	}
	p.Additionals = make([]*ResourceRecord, 0, limitCount(h.ARCount, MaxRRPerSection))
	for i := uint16(0); i < h.ARCount; i++ {
		rr, err := ParseRecord(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Additionals = append(p.Additionals, rr)
	}
	return p, nil
}

// IsResponse reports whether the packet's QR flag is set.
func (p Packet) IsResponse() bool {
	return p.Header.Flags&QRFlag != 0
}
