// Package protocol holds the wire-level constants shared by the resolver's
// codec, transport, and responder. Nothing here allocates or does I/O.
package protocol

import "net"

// RecordType is a DNS resource record type per RFC 1035 §3.2.2. This
// resolver only ever emits or accepts the two address types; the constants
// for the others exist so incoming records can be recognized and skipped
// rather than misinterpreted.
type RecordType uint16

const (
	RecordTypeA     RecordType = 1
	RecordTypeCNAME RecordType = 5
	RecordTypePTR   RecordType = 12
	RecordTypeTXT   RecordType = 16
	RecordTypeAAAA  RecordType = 28
	RecordTypeSRV   RecordType = 33
	RecordTypeANY   RecordType = 255
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeA:
		return "A"
	case RecordTypeCNAME:
		return "CNAME"
	case RecordTypePTR:
		return "PTR"
	case RecordTypeTXT:
		return "TXT"
	case RecordTypeAAAA:
		return "AAAA"
	case RecordTypeSRV:
		return "SRV"
	case RecordTypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// Class is a DNS resource record class per RFC 1035 §3.2.4.
type Class uint16

const (
	ClassIN  Class = 1
	ClassANY Class = 255

	// ClassCacheFlushBit is the top bit of the class field on mDNS
	// response records (RFC 6762 §10.2). Callers must mask it off before
	// comparing against ClassIN.
	ClassCacheFlushBit Class = 0x8000
	classMask          Class = 0x7FFF
)

// Mask strips the cache-flush bit, returning the plain class value.
func (c Class) Mask() Class { return c & classMask }

// Header flag bits, RFC 1035 §4.1.1.
const (
	Flag1Response    uint8 = 0x80
	Flag1Authority   uint8 = 0x04
	Flag1Truncated   uint8 = 0x02
	Flag1RD          uint8 = 0x01
	Flag2RA          uint8 = 0x80
	Flag2RcodeMask   uint8 = 0x0F
	RcodeSuccess     uint8 = 0x00
	RcodeNameError   uint8 = 0x03
)

// Family selects which address record type a Resolver operates over. The
// source this resolver is modeled on chose this at compile time
// (UIP_CONF_IPV6); Go idiom prefers a runtime option instead of a build
// tag, so it is threaded through as an explicit value everywhere the
// original switched on a #ifdef.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

// AddrLen returns the wire length of an address record's RDATA for this family.
func (f Family) AddrLen() int {
	if f == FamilyIPv6 {
		return net.IPv6len
	}
	return net.IPv4len
}

// RecordType returns the address record type (A or AAAA) queried and
// answered for this family.
func (f Family) RecordType() RecordType {
	if f == FamilyIPv6 {
		return RecordTypeAAAA
	}
	return RecordTypeA
}

// Ports used by the resolver, RFC 1035 §4.2.1 and RFC 6762 §5.
const (
	DNSPort  = 53
	MDNSPort = 5353
)

// Well-known multicast groups, RFC 6762 §3.
var (
	MulticastAddrIPv4 = net.IPv4(224, 0, 0, 251)
	MulticastAddrIPv6 = net.ParseIP("ff02::fb")
)

// Default upstream unicast resolvers, matching the values the embedded
// source ships as resolv_default_dns_server.
var (
	DefaultServerIPv4 = net.IPv4(8, 8, 8, 8)
	DefaultServerIPv6 = net.ParseIP("2001:470:20::2")
)

// DefaultHostname matches CONTIKI_CONF_DEFAULT_HOSTNAME.
const DefaultHostname = "contiki"

// Table and retry defaults, RESOLV_CONF_* in the embedded source.
const (
	DefaultTableSize         = 4
	DefaultMaxRetries        = 8
	DefaultMaxMDNSRetries    = 3
	DefaultMaxDomainNameSize = 32
	DefaultMDNSResponderTTL  = 120 // seconds, RFC 6762 §10
)

// TransactionIDOffset is the invertible offset applied to a slot index to
// produce a DNS transaction ID on the wire (RESOLV_ENCODE_INDEX /
// RESOLV_DECODE_INDEX in the embedded source). It is not a spoofing
// defense — see DESIGN.md.
const TransactionIDOffset = 61616

// EncodeTransactionID maps a name-table slot index onto a 16-bit wire ID.
func EncodeTransactionID(index int) uint16 {
	return uint16(index + TransactionIDOffset)
}

// DecodeTransactionID inverts EncodeTransactionID. The result is only a
// valid slot index if it is less than the table size; callers must check.
func DecodeTransactionID(id uint16) int {
	return int(uint8(int(id) - TransactionIDOffset))
}
