// Package resolv implements a stub DNS resolver with an integrated mDNS
// responder: bounded-slot query state machine, byte-exact wire codec, and
// dual unicast/multicast behavior, all driven from a single cooperative
// event loop (see Resolver.Run).
package resolv

import (
	"net"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/protocol"
)

// Option configures a Resolver at construction time.
type Option func(*Resolver) error

// WithUpstreamServer sets the unicast DNS server used for non-mDNS
// queries. If unset, the default tracks the configured address family
// (8.8.8.8 for IPv4, 2001:470:20::2 for IPv6).
func WithUpstreamServer(addr net.IP) Option {
	return func(r *Resolver) error {
		r.serverAddr = addr
		r.serverAddrExplicit = true
		return nil
	}
}

// WithFamily selects IPv4 or IPv6 operation: which record type (A or
// AAAA) queries ask for, and the size answers are validated against.
func WithFamily(f protocol.Family) Option {
	return func(r *Resolver) error {
		r.family = f
		return nil
	}
}

// WithMDNS enables or disables mDNS client behavior for names ending in
// ".local". Enabled by default.
func WithMDNS(enabled bool) Option {
	return func(r *Resolver) error {
		r.mdnsClientEnabled = enabled
		return nil
	}
}

// WithMDNSResponder enables or disables answering inbound mDNS questions
// for the resolver's own hostname. Enabled by default.
func WithMDNSResponder(enabled bool) Option {
	return func(r *Resolver) error {
		r.mdnsResponderEnabled = enabled
		return nil
	}
}

// WithIncludeGlobalIPv6 includes non-link-local IPv6 addresses in mDNS
// responder answers. Off by default.
func WithIncludeGlobalIPv6(enabled bool) Option {
	return func(r *Resolver) error {
		r.includeGlobalIPv6 = enabled
		return nil
	}
}

// WithMaxRetries sets the unicast retry cap before a slot transitions to
// ERROR. Default 8.
func WithMaxRetries(n int) Option {
	return func(r *Resolver) error {
		r.maxRetries = uint8(n)
		return nil
	}
}

// WithMaxMDNSRetries sets the mDNS retry cap. Default 3.
func WithMaxMDNSRetries(n int) Option {
	return func(r *Resolver) error {
		r.maxMDNSRetries = uint8(n)
		return nil
	}
}

// WithMaxDomainNameSize bounds the length a name is stored at, truncating
// longer names at store time. Default 32.
func WithMaxDomainNameSize(n int) Option {
	return func(r *Resolver) error {
		r.maxDomainNameSize = n
		return nil
	}
}

// WithTableSize sets the number of name-table slots. Default 4.
func WithTableSize(n int) Option {
	return func(r *Resolver) error {
		r.tableSize = n
		return nil
	}
}

// WithHostname sets the resolver's own hostname, advertised by the mDNS
// responder as "<hostname>.local". Default "contiki".
func WithHostname(name string) Option {
	return func(r *Resolver) error {
		r.hostname = name
		r.baseHostname = name
		return nil
	}
}

// WithLogger sets the zap logger the resolver reports to: dropped
// malformed packets at Debug, failed sends and failed mDNS response
// builds at Warn. State transitions, retries, exhausted retries, and
// responder matches are not logged. The default is a no-op logger, so the
// resolver is silent unless a caller opts in.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) error {
		r.logger = l
		return nil
	}
}
