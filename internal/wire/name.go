// Package wire implements the byte-exact DNS message codec the resolver
// needs: label (de)compression, the fixed 12-byte header, and the answer
// and question tails defined by RFC 1035 §4.1. It never allocates more
// than the message it is working on, and never mutates the buffer it is
// given — the embedded source this resolver is modeled on rewrites names
// in place as it decodes them; we copy instead (see SPEC_FULL.md §4.1).
package wire

import (
	"strings"

	"github.com/kelvinlabs/resolv/internal/dnserr"
)

const (
	maxLabelLength = 63
	maxNameLength  = 255
)

// ParseName decodes a DNS name starting at offset in data, per RFC 1035
// §4.1.4. It returns the dotted-string form (no trailing dot), the offset
// of the first byte past the name (past the compression pointer, if the
// name ends in one), and an error if the name is truncated, oversized, or
// loops through a degenerate compression pointer.
func ParseName(data []byte, offset int) (string, int, error) {
	if offset < 0 || offset > len(data) {
		return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "offset out of bounds"}
	}

	var labels []string
	pos := offset
	totalLen := 0
	followedPointer := false
	endOffset := -1 // offset to return to caller; set once, on the first pointer or terminator

	// RFC 1035 messages are at most 64KB; that bounds the number of
	// pointer hops we will ever need to take before either terminating
	// or declaring a loop.
	for hops := 0; hops < 128; hops++ {
		if pos >= len(data) {
			return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "offset out of bounds"}
		}

		n := data[pos]

		if n&0xC0 == 0xC0 {
			if pos+1 >= len(data) {
				return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "truncated compression pointer"}
			}
			target := int(n&0x3F)<<8 | int(data[pos+1])
			if !followedPointer {
				endOffset = pos + 2
			}
			if target >= pos {
				return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "invalid compression pointer"}
			}
			pos = target
			followedPointer = true
			continue
		}

		if n == 0 {
			if !followedPointer {
				endOffset = pos + 1
			}
			return strings.Join(labels, "."), endOffset, nil
		}

		if n > maxLabelLength {
			return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "label exceeds maximum 63 bytes per RFC 1035 §3.1"}
		}

		labelStart := pos + 1
		labelEnd := labelStart + int(n)
		if labelEnd > len(data) {
			return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "truncated label"}
		}

		totalLen += int(n) + 1
		if totalLen > maxNameLength {
			return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "name exceeds maximum 255 bytes per RFC 1035 §3.1"}
		}

		labels = append(labels, string(data[labelStart:labelEnd]))
		pos = labelEnd
	}

	return "", 0, &dnserr.WireFormatError{Operation: "parse name", Reason: "invalid compression pointer"}
}

// EncodeName encodes a dotted host name into length-prefixed labels
// terminated by a zero byte, per RFC 1035 §3.1. A single trailing dot is
// ignored; more than one yields an empty label and is rejected. Unlike the embedded source this resolver is modeled on,
// EncodeName rejects labels over 63 bytes and names over 255 bytes
// encoded instead of silently overrunning a fixed buffer.
func EncodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return []byte{0}, nil
	}

	labels := strings.Split(name, ".")
	buf := make([]byte, 0, len(name)+len(labels)+1)

	for _, label := range labels {
		if label == "" {
			return nil, &dnserr.ValidationError{Operation: "encode name", Reason: "empty label"}
		}
		if len(label) > maxLabelLength {
			return nil, &dnserr.ValidationError{Operation: "encode name", Reason: "label exceeds maximum length 63 bytes per RFC 1035 §3.1"}
		}
		if err := validateLabelChars(label); err != nil {
			return nil, err
		}
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	buf = append(buf, 0)

	if len(buf) > maxNameLength+1 {
		return nil, &dnserr.ValidationError{Operation: "encode name", Reason: "name exceeds maximum 255 bytes per RFC 1035 §3.1"}
	}

	return buf, nil
}

func validateLabelChars(label string) error {
	if label[0] == '-' || label[len(label)-1] == '-' {
		return &dnserr.ValidationError{Operation: "encode name", Reason: "hyphen cannot be first or last character"}
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return &dnserr.ValidationError{Operation: "encode name", Reason: "invalid character in label"}
		}
	}
	return nil
}

// CanonicalizeName strips trailing dots, matching resolv_query's and
// resolv_lookup's "remove trailing dots" preprocessing (core/net/resolv.c).
func CanonicalizeName(name string) string {
	return strings.TrimRight(name, ".")
}
