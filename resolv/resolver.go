package resolv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/protocol"
	"github.com/kelvinlabs/resolv/internal/table"
	"github.com/kelvinlabs/resolv/internal/transport"
	"github.com/kelvinlabs/resolv/internal/wire"
)

// MaxRenameAttempts bounds the hostname auto-rename loop triggered by a
// name collision on the mDNS self-query (see checkHostnameCollision).
const MaxRenameAttempts = 10

var (
	errResolverClosed          = errors.New("resolv: resolver closed")
	errRetriesExhausted        = errors.New("resolv: retries exhausted")
	errRenameAttemptsExhausted = errors.New("resolv: hostname rename attempts exhausted")
)

// Resolver is a stub DNS resolver with an integrated mDNS responder. It
// owns one UDP endpoint and a fixed-size name table, and is driven by a
// single call to Run, which must run in its own goroutine for the
// lifetime of the resolver.
//
// All methods are safe to call concurrently with Run and with each
// other: state-mutating calls (Query, SetHostname, Conf, Lookup,
// GetServer, GetHostname) are delivered to Run's event loop over a
// channel rather than touching resolver state directly, so the name
// table and process-wide fields are only ever written from one
// goroutine.
type Resolver struct {
	transport transport.Transport
	table     *table.Table
	logger    *zap.Logger

	family               protocol.Family
	serverAddr           net.IP
	serverAddrExplicit   bool
	hostname             string
	baseHostname         string
	mdnsClientEnabled    bool
	mdnsResponderEnabled bool
	includeGlobalIPv6    bool
	maxRetries           uint8
	maxMDNSRetries       uint8
	maxDomainNameSize    int
	tableSize            int

	commands chan command
	running  atomic.Bool

	collisionProbe string
	renameAttempts int

	subsMu      sync.Mutex
	subscribers map[int]chan FoundEvent
	nextSubID   int

	// localAddrSource is overridden by tests so the mDNS responder's
	// answer set doesn't depend on the test host's actual interfaces.
	localAddrSource func() [][]byte
}

// New builds a Resolver and its UDP transport from opts. It does not
// start the event loop; call Run in its own goroutine to begin serving.
func New(opts ...Option) (*Resolver, error) {
	r, err := newResolver(opts...)
	if err != nil {
		return nil, err
	}

	bindPort := 0
	if r.mdnsResponderEnabled {
		bindPort = protocol.MDNSPort
	}
	t, err := transport.NewUDPTransport(transport.Config{
		Family:        r.family,
		BindPort:      bindPort,
		JoinMulticast: r.mdnsClientEnabled || r.mdnsResponderEnabled,
		ReusePort:     r.mdnsResponderEnabled,
	})
	if err != nil {
		return nil, err
	}
	r.transport = t

	return r, nil
}

// newResolver builds the options-configured Resolver without a
// transport, so tests can wire in a transport.Mock instead of a real
// socket.
func newResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		family:               protocol.FamilyIPv4,
		serverAddr:           protocol.DefaultServerIPv4,
		hostname:             protocol.DefaultHostname,
		baseHostname:         protocol.DefaultHostname,
		mdnsClientEnabled:    true,
		mdnsResponderEnabled: true,
		maxRetries:           protocol.DefaultMaxRetries,
		maxMDNSRetries:       protocol.DefaultMaxMDNSRetries,
		maxDomainNameSize:    protocol.DefaultMaxDomainNameSize,
		tableSize:            protocol.DefaultTableSize,
		logger:               zap.NewNop(),
		commands:             make(chan command),
		subscribers:          make(map[int]chan FoundEvent),
	}

	r.localAddrSource = r.localAddresses

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("resolv: apply option: %w", err)
		}
	}

	if r.family == protocol.FamilyIPv6 && !r.serverAddrExplicit {
		r.serverAddr = protocol.DefaultServerIPv6
	}

	r.table = table.New(r.tableSize, r.maxDomainNameSize)
	return r, nil
}

// Close releases the resolver's socket. It unblocks any goroutine
// currently parked in Run's receive loop, causing Run to return shortly
// after (see the receive loop's error handling).
func (r *Resolver) Close() error {
	return r.transport.Close()
}

// Run is the resolver's single event loop: the only goroutine that ever
// mutates the name table or process-wide state. It dispatches three
// kinds of input — a one-second retry tick, inbound datagrams, and
// host-originated commands (Query, Lookup, SetHostname, Conf,
// GetServer) — exactly the three-input model called for by the design
// this resolver follows. Run blocks until ctx is cancelled or the
// transport fails, whichever happens first.
func (r *Resolver) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	datagrams := make(chan datagramEvent)
	recvErr := make(chan error, 1)
	go r.receiveLoop(ctx, datagrams, recvErr)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-recvErr:
			return err
		case <-ticker.C:
			r.checkEntries()
		case dg := <-datagrams:
			r.handleDatagram(dg.packet, dg.src)
		case cmd := <-r.commands:
			r.dispatch(cmd)
		}
	}
}

type datagramEvent struct {
	packet []byte
	src    net.Addr
}

// receiveLoop turns blocking transport reads into channel sends. It
// never touches resolver state; a transport-level error (as opposed to a
// malformed packet, which handleDatagram drops silently) is treated as
// fatal and reported back to Run.
func (r *Resolver) receiveLoop(ctx context.Context, out chan<- datagramEvent, errc chan<- error) {
	for {
		packet, src, err := r.transport.Receive(ctx)
		if err != nil {
			select {
			case errc <- err:
			default:
			}
			return
		}
		select {
		case out <- datagramEvent{packet: packet, src: src}:
		case <-ctx.Done():
			return
		}
	}
}

// command is the interface implemented by every host-originated request
// delivered to Run over r.commands.
type command interface{}

type queryCmd struct {
	name string
}

type lookupCmd struct {
	name  string
	reply chan lookupReply
}

type lookupReply struct {
	addr  net.IP
	found bool
}

type setHostnameCmd struct {
	name string
}

type getHostnameCmd struct {
	reply chan string
}

type confCmd struct {
	addr net.IP
}

type getServerCmd struct {
	reply chan net.IP
}

func (r *Resolver) dispatch(cmd command) {
	switch c := cmd.(type) {
	case queryCmd:
		r.startQuery(c.name)
		r.checkEntries()
	case lookupCmd:
		addr, found := r.lookupLocked(c.name)
		c.reply <- lookupReply{addr: addr, found: found}
	case setHostnameCmd:
		r.hostname = c.name
		r.baseHostname = c.name
		r.renameAttempts = 0
		r.checkHostnameCollision()
	case getHostnameCmd:
		c.reply <- r.hostname
	case confCmd:
		r.serverAddr = c.addr
	case getServerCmd:
		c.reply <- r.serverAddr
	}
}

// startQuery implements §4.2's slot-selection and §4.6's query() entry
// point for a name Query has already canonicalized: pick or evict a slot,
// route by the ".local" suffix when mDNS client behavior is enabled.
func (r *Resolver) startQuery(name string) {
	index, _ := r.table.FindOrEvict(name)
	slot := r.table.Slot(index)
	slot.IsMDNS = r.mdnsClientEnabled && isMDNSName(name)
}

func isMDNSName(name string) bool {
	const suffix = ".local"
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

func (r *Resolver) lookupLocked(name string) (net.IP, bool) {
	if name == "localhost" {
		if r.family == protocol.FamilyIPv6 {
			return net.ParseIP("::1"), true
		}
		return net.ParseIP("127.0.0.1"), true
	}
	return r.table.Lookup(name)
}

// Query asynchronously resolves name, broadcasting the result (or a
// timeout/error) to subscribers once it completes. It validates the name
// against the wire encoding's rules synchronously, as SetHostname does;
// the query's outcome is reported only through the Found broadcast.
func (r *Resolver) Query(name string) error {
	name = wire.CanonicalizeName(name)
	if _, err := wire.EncodeName(name); err != nil {
		return err
	}
	select {
	case r.commands <- queryCmd{name: name}:
		return nil
	case <-time.After(commandTimeout):
		return errResolverClosed
	}
}

// Lookup returns the cached address for name if a slot for it is DONE,
// or the special-cased loopback address for "localhost".
func (r *Resolver) Lookup(name string) (net.IP, bool) {
	name = wire.CanonicalizeName(name)
	reply := make(chan lookupReply, 1)
	select {
	case r.commands <- lookupCmd{name: name, reply: reply}:
	case <-time.After(commandTimeout):
		return nil, false
	}
	select {
	case res := <-reply:
		return res.addr, res.found
	case <-time.After(commandTimeout):
		return nil, false
	}
}

// SetHostname changes the resolver's advertised mDNS hostname and
// triggers a collision check: a self-query for "<name>.local" that, if
// answered, causes an automatic rename (see checkHostnameCollision).
func (r *Resolver) SetHostname(name string) error {
	name = wire.CanonicalizeName(name)
	if _, err := wire.EncodeName(name); err != nil {
		return err
	}
	select {
	case r.commands <- setHostnameCmd{name: name}:
		return nil
	case <-time.After(commandTimeout):
		return errResolverClosed
	}
}

// GetHostname returns the resolver's current hostname.
func (r *Resolver) GetHostname() string {
	reply := make(chan string, 1)
	select {
	case r.commands <- getHostnameCmd{reply: reply}:
	case <-time.After(commandTimeout):
		return ""
	}
	select {
	case name := <-reply:
		return name
	case <-time.After(commandTimeout):
		return ""
	}
}

// Conf overwrites the upstream unicast DNS server. In-flight ASKING
// slots retarget to the new server on their next retry tick, since
// emission always reads the current server address at send time.
func (r *Resolver) Conf(addr net.IP) error {
	select {
	case r.commands <- confCmd{addr: addr}:
		return nil
	case <-time.After(commandTimeout):
		return errResolverClosed
	}
}

// GetServer returns the current upstream server address, or nil if Run
// has not yet started.
func (r *Resolver) GetServer() net.IP {
	if !r.running.Load() {
		return nil
	}
	reply := make(chan net.IP, 1)
	select {
	case r.commands <- getServerCmd{reply: reply}:
	case <-time.After(commandTimeout):
		return nil
	}
	select {
	case addr := <-reply:
		return addr
	case <-time.After(commandTimeout):
		return nil
	}
}

// commandTimeout bounds how long a public method waits to hand its
// request to Run, so a caller using the resolver after Run has exited
// gets a prompt answer instead of hanging forever.
const commandTimeout = 5 * time.Second
