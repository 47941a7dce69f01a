package dns

import (
	"fmt"
)

// Limits for incoming mDNS messages to prevent resource exhaustion.
// RFC 6762 Section 17 allows multicast DNS messages up to 9000 bytes.
const (
	MaxIncomingMessageSize = 9000 // Maximum size of an incoming mDNS message
	MaxQuestions           = 32   // mDNS queries may aggregate many questions
	MaxRRPerSection        = 128  // Maximum resource records per section
	MaxTotalRR             = 256  // Maximum total resource records
)

// ParseMessageBounded parses an incoming mDNS message with bounds checking.
// Both queries and responses are accepted (mDNS responders must look at
// both); only opcode 0 is supported.
//
// Returns an error if:
//   - The message exceeds MaxIncomingMessageSize
//   - The opcode is not 0 (standard query)
//   - Question or RR counts exceed limits
func ParseMessageBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingMessageSize {
		return Packet{}, fmt.Errorf("%w: message too large", ErrWire)
	}
	p, err := ParsePacket(msg)
	if err != nil {
		return Packet{}, err
	}

	if opcode := extractOpcode(p.Header.Flags); opcode != 0 {
		return Packet{}, fmt.Errorf("%w: unsupported OpCode: %d", ErrWire, opcode)
	}

	if err := validateSectionCounts(p.Header); err != nil {
		return Packet{}, err
	}

	return p, nil
}

// extractOpcode extracts the 4-bit opcode from the flags field.
// The opcode occupies bits 14-11, so mask with 0x7800 and shift right by 11.
func extractOpcode(flags uint16) uint16 {
	return (flags & OpcodeMask) >> 11
}

// validateSectionCounts checks that section counts don't exceed limits.
func validateSectionCounts(h Header) error {
	qd := int(h.QDCount)
	an := int(h.ANCount)
	ns := int(h.NSCount)
	ar := int(h.ARCount)

	if qd > MaxQuestions {
		return fmt.Errorf("%w: too many questions", ErrWire)
	}
	if an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection {
		return fmt.Errorf("%w: too many resource records", ErrWire)
	}
	if (an + ns + ar) > MaxTotalRR {
		return fmt.Errorf("%w: too many total resource records", ErrWire)
	}
	return nil
}
