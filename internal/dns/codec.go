package dns

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// NormalizeName returns a lowercase DNS name without trailing dots.
// DNS domain names are case-insensitive per RFC 1035 Section 3.1; the zone
// indexes and the ResourceKey map key both rely on this normal form.
func NormalizeName(name string) string {
	return strings.ToLower(trimDot(name))
}

// NameEqual reports whether two DNS names are equal under case-insensitive
// comparison, ignoring trailing dots (RFC 4343).
func NameEqual(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// NameEndsWith reports whether name ends with the given suffix on a label
// boundary: "printer._ipp._tcp.local" ends with "_tcp.local", but
// "foo-tcp.local" does not.
func NameEndsWith(name, suffix string) bool {
	name = NormalizeName(name)
	suffix = NormalizeName(suffix)
	if !strings.HasSuffix(name, suffix) {
		return false
	}
	if len(name) == len(suffix) {
		return true
	}
	return name[len(name)-len(suffix)-1] == '.'
}

// ValidName reports whether the name can be encoded to wire format.
func ValidName(name string) bool {
	_, err := EncodeName(name)
	return err == nil
}

// EncodeName encodes a domain name to DNS wire format (RFC 1035 Section 3.1).
//
// Example: "example.com" → [7]"example"[3]"com"[0]
//
// This implementation does not emit compression pointers; messages built by
// the scope are small enough that compression is not worth the bookkeeping.
//
// Constraints:
//   - Each label max 63 bytes
//   - Total encoded name max 255 bytes
//   - ASCII only (no IDN/punycode handled here)
func EncodeName(domain string) ([]byte, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain name must be non-empty", ErrWire)
	}
	domain = trimDot(domain)
	if domain == "" {
		return []byte{0}, nil // Root domain
	}

	out := make([]byte, 0, len(domain)+2)
	labelStart := 0
	for i := 0; i <= len(domain); i++ {
		if i == len(domain) || domain[i] == '.' {
			if i == labelStart {
				return nil, fmt.Errorf("%w: invalid domain name (empty label): %q", ErrWire, domain)
			}
			label := domain[labelStart:i]

			// Validate ASCII
			for j := 0; j < len(label); j++ {
				if label[j] > 0x7F {
					return nil, fmt.Errorf("%w: domain name must be ASCII", ErrWire)
				}
			}

			// Check label length (max 63 per RFC 1035)
			if len(label) > 63 {
				return nil, fmt.Errorf("%w: DNS label too long (%d > 63): %q", ErrWire, len(label), label)
			}

			out = append(out, byte(len(label)))
			out = append(out, label...)
			labelStart = i + 1
		}
	}
	out = append(out, 0) // Terminating zero-length label

	if len(out) > 255 {
		return nil, fmt.Errorf("%w: encoded domain name too long (%d > 255)", ErrWire, len(out))
	}
	return out, nil
}

// DecodeName decodes a possibly-compressed domain name from wire format
// (RFC 1035 Section 4.1.4).
//
// Compression pointers (high 2 bits = 11) indicate an offset to a
// previously-encoded name. This function reads from msg starting at *off,
// advancing *off past the encoded name (including any pointer bytes), and
// returns an ASCII, dot-separated name without a trailing dot.
func DecodeName(msg []byte, off *int) (string, error) {
	name, err := decodeName(msg, off, 0, map[int]struct{}{})
	if err != nil {
		return "", err
	}
	return name, nil
}

// decodeName is the recursive implementation of DecodeName.
// It tracks recursion depth and visited offsets to detect compression loops.
func decodeName(msg []byte, off *int, depth int, visited map[int]struct{}) (string, error) {
	const maxCompressionDepth = 20

	if depth > maxCompressionDepth {
		return "", fmt.Errorf("%w: too many DNS compression pointer indirections", ErrWire)
	}
	if *off < 0 || *off >= len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF while decoding DNS name", ErrWire)
	}

	labels := make([]string, 0, 6)
	for {
		if *off >= len(msg) {
			return "", fmt.Errorf("%w: unexpected EOF while decoding DNS name", ErrWire)
		}
		labelLen := msg[*off]
		*off++

		// Zero-length label marks end of name
		if labelLen == 0 {
			break
		}

		// Compression pointer (high 2 bits = 11)
		if isCompressionPointer(labelLen) {
			rest, err := followCompressionPointer(msg, off, labelLen, depth, visited)
			if err != nil {
				return "", err
			}
			if rest != "" {
				labels = append(labels, rest)
			}
			break
		}

		// Reserved label types (high 2 bits = 01 or 10)
		if hasReservedBits(labelLen) {
			return "", fmt.Errorf("%w: invalid DNS label length (reserved high bits set)", ErrWire)
		}

		label, err := readLabel(msg, off, int(labelLen))
		if err != nil {
			return "", err
		}
		labels = append(labels, label)
	}

	return strings.Join(labels, "."), nil
}

// isCompressionPointer checks if the label length byte indicates a compression pointer.
func isCompressionPointer(b byte) bool {
	return (b & 0xC0) == 0xC0
}

// hasReservedBits checks if the label uses reserved encoding (01xxxxxx or 10xxxxxx).
func hasReservedBits(b byte) bool {
	return (b & 0xC0) != 0
}

// followCompressionPointer follows a DNS compression pointer and returns the
// name at that offset. The pointer is a 14-bit value: the first byte's low 6
// bits + the next byte.
func followCompressionPointer(
	msg []byte,
	off *int,
	firstByte byte,
	depth int,
	visited map[int]struct{},
) (string, error) {
	if *off >= len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF while decoding compression pointer", ErrWire)
	}

	ptr := int(binary.BigEndian.Uint16([]byte{firstByte & 0x3F, msg[*off]}))
	*off++

	if ptr >= len(msg) {
		return "", fmt.Errorf("%w: DNS compression pointer out of bounds", ErrWire)
	}
	if _, ok := visited[ptr]; ok {
		return "", fmt.Errorf("%w: DNS compression pointer loop detected", ErrWire)
	}
	visited[ptr] = struct{}{}

	ptrOff := ptr
	return decodeName(msg, &ptrOff, depth+1, visited)
}

// readLabel reads a single DNS label of the given length.
func readLabel(msg []byte, off *int, length int) (string, error) {
	if *off+length > len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF while reading DNS label", ErrWire)
	}
	label := msg[*off : *off+length]
	*off += length

	for _, b := range label {
		if b > 0x7F {
			return "", fmt.Errorf("%w: decoded DNS name was not ASCII", ErrWire)
		}
	}
	return string(label), nil
}

// trimDot removes all trailing dots from a string.
func trimDot(s string) string {
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
