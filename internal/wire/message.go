package wire

import (
	"encoding/binary"

	"github.com/kelvinlabs/resolv/internal/dnserr"
	"github.com/kelvinlabs/resolv/internal/protocol"
)

// HeaderSize is the fixed length of a DNS message header, RFC 1035 §4.1.1.
const HeaderSize = 12

// Header is the fixed 12-byte DNS message header.
type Header struct {
	ID      uint16
	Flags1  uint8
	Flags2  uint8
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags1&protocol.Flag1Response != 0 }

// Rcode returns the low nibble of Flags2.
func (h Header) Rcode() uint8 { return h.Flags2 & protocol.Flag2RcodeMask }

// DecodeHeader reads the fixed header from the front of a message.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &dnserr.WireFormatError{Operation: "decode header", Reason: "message shorter than header"}
	}
	return Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags1:  data[2],
		Flags2:  data[3],
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

// Encode appends the header's wire form to buf.
func (h Header) Encode(buf []byte) []byte {
	var tmp [HeaderSize]byte
	binary.BigEndian.PutUint16(tmp[0:2], h.ID)
	tmp[2] = h.Flags1
	tmp[3] = h.Flags2
	binary.BigEndian.PutUint16(tmp[4:6], h.QDCount)
	binary.BigEndian.PutUint16(tmp[6:8], h.ANCount)
	binary.BigEndian.PutUint16(tmp[8:10], h.NSCount)
	binary.BigEndian.PutUint16(tmp[10:12], h.ARCount)
	return append(buf, tmp[:]...)
}

// questionTailSize is the wire size of a question's type+class tail,
// following the name (RFC 1035 §4.1.2).
const questionTailSize = 4

// answerTailSize is the wire size of an answer's type+class+ttl+rdlength
// tail, following the name (RFC 1035 §4.1.3), excluding RDATA.
const answerTailSize = 10

// Question is a single entry of a message's question section.
type Question struct {
	Name  string
	Type  protocol.RecordType
	Class protocol.Class
}

// EncodeQuestion appends a question (name, type, class) to buf.
func EncodeQuestion(buf []byte, name string, qtype protocol.RecordType, class protocol.Class) ([]byte, error) {
	encodedName, err := EncodeName(name)
	if err != nil {
		return nil, err
	}
	buf = append(buf, encodedName...)
	var tail [questionTailSize]byte
	binary.BigEndian.PutUint16(tail[0:2], uint16(qtype))
	binary.BigEndian.PutUint16(tail[2:4], uint16(class))
	return append(buf, tail[:]...), nil
}

// SkipQuestion advances past a question starting at offset: a name
// followed by a fixed type+class tail. It does not validate the tail's
// contents; callers that need the type/class should decode it themselves
// with the returned offset.
func SkipQuestion(data []byte, offset int) (int, error) {
	_, next, err := ParseName(data, offset)
	if err != nil {
		return 0, err
	}
	if next+questionTailSize > len(data) {
		return 0, &dnserr.WireFormatError{Operation: "skip question", Reason: "truncated question"}
	}
	return next + questionTailSize, nil
}

// DecodeQuestion parses a full question (name, type, class) starting at
// offset, returning the offset past it.
func DecodeQuestion(data []byte, offset int) (Question, int, error) {
	name, next, err := ParseName(data, offset)
	if err != nil {
		return Question{}, 0, err
	}
	if next+questionTailSize > len(data) {
		return Question{}, 0, &dnserr.WireFormatError{Operation: "decode question", Reason: "truncated question"}
	}
	q := Question{
		Name:  name,
		Type:  protocol.RecordType(binary.BigEndian.Uint16(data[next : next+2])),
		Class: protocol.Class(binary.BigEndian.Uint16(data[next+2 : next+4])),
	}
	return q, next + questionTailSize, nil
}

// Answer is a single address-record answer: the only record shape this
// resolver ever parses or emits, per spec Non-goals.
type Answer struct {
	Name  string
	Type  protocol.RecordType
	Class protocol.Class
	TTL   uint32
	Addr  []byte // RDATA as received: 4 bytes for A, 16 for AAAA, any length for other types
}

// DecodeAnswer parses one answer record starting at offset, returning the
// record and the offset past it. The name may be a compression pointer.
func DecodeAnswer(data []byte, offset int) (Answer, int, error) {
	name, next, err := ParseName(data, offset)
	if err != nil {
		return Answer{}, 0, err
	}
	if next+answerTailSize > len(data) {
		return Answer{}, 0, &dnserr.WireFormatError{Operation: "decode answer", Reason: "truncated answer"}
	}

	rtype := protocol.RecordType(binary.BigEndian.Uint16(data[next : next+2]))
	class := protocol.Class(binary.BigEndian.Uint16(data[next+2 : next+4]))
	ttl := binary.BigEndian.Uint32(data[next+4 : next+8])
	rdlength := int(binary.BigEndian.Uint16(data[next+8 : next+10]))

	rdataStart := next + answerTailSize
	rdataEnd := rdataStart + rdlength
	if rdataEnd > len(data) {
		return Answer{}, 0, &dnserr.WireFormatError{Operation: "decode answer", Reason: "truncated rdata"}
	}

	addr := make([]byte, rdlength)
	copy(addr, data[rdataStart:rdataEnd])

	return Answer{Name: name, Type: rtype, Class: class, TTL: ttl, Addr: addr}, rdataEnd, nil
}

// EncodeAnswer appends a full answer record (name, tail, rdata) to buf.
// The name is encoded fresh; for a second or later answer in the same
// message, use EncodeAnswerPointer instead to reuse a back-pointer per
// the spec's single-back-pointer compression rule.
func EncodeAnswer(buf []byte, name string, rtype protocol.RecordType, class protocol.Class, ttl uint32, addr []byte) ([]byte, error) {
	encodedName, err := EncodeName(name)
	if err != nil {
		return nil, err
	}
	buf = append(buf, encodedName...)
	return appendAnswerTail(buf, rtype, class, ttl, addr), nil
}

// EncodeAnswerPointer appends an answer record whose name is a two-byte
// compression pointer to pointerOffset (per spec §4.1, answers after the
// first in an mDNS response point at the header-relative offset of the
// first answer's name).
func EncodeAnswerPointer(buf []byte, pointerOffset int, rtype protocol.RecordType, class protocol.Class, ttl uint32, addr []byte) []byte {
	buf = append(buf, 0xC0, byte(pointerOffset))
	return appendAnswerTail(buf, rtype, class, ttl, addr)
}

func appendAnswerTail(buf []byte, rtype protocol.RecordType, class protocol.Class, ttl uint32, addr []byte) []byte {
	var tail [answerTailSize]byte
	binary.BigEndian.PutUint16(tail[0:2], uint16(rtype))
	binary.BigEndian.PutUint16(tail[2:4], uint16(class))
	binary.BigEndian.PutUint32(tail[4:8], ttl)
	binary.BigEndian.PutUint16(tail[8:10], uint16(len(addr)))
	buf = append(buf, tail[:]...)
	return append(buf, addr...)
}
