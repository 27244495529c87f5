// Command resolvd is a small demo binary wiring the resolv library to a
// real socket: it resolves the names given on the command line and, if
// -responder is set, also answers inbound mDNS questions for its own
// hostname.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/protocol"
	"github.com/kelvinlabs/resolv/resolv"
)

func main() {
	var (
		hostname  = flag.String("hostname", protocol.DefaultHostname, "local hostname advertised over mDNS")
		server    = flag.String("server", "", "upstream unicast DNS server (defaults to the builtin per-family default)")
		ipv6      = flag.Bool("ipv6", false, "operate on AAAA records / IPv6 addresses instead of A/IPv4")
		responder = flag.Bool("responder", true, "answer inbound mDNS questions for our own hostname")
		verbose   = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("build logger: %v", err)
		}
		logger = l
	}
	defer logger.Sync()

	opts := []resolv.Option{
		resolv.WithHostname(*hostname),
		resolv.WithMDNSResponder(*responder),
		resolv.WithLogger(logger),
	}
	if *ipv6 {
		opts = append(opts, resolv.WithFamily(protocol.FamilyIPv6))
	}
	if *server != "" {
		addr := net.ParseIP(*server)
		if addr == nil {
			log.Fatalf("invalid -server address %q", *server)
		}
		opts = append(opts, resolv.WithUpstreamServer(addr))
	}

	r, err := resolv.New(opts...)
	if err != nil {
		log.Fatalf("create resolver: %v", err)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	found, unsubscribe := r.Subscribe()
	defer unsubscribe()

	go func() {
		for ev := range found {
			if ev.Err != nil {
				fmt.Printf("%-32s  FAILED: %v\n", ev.Name, ev.Err)
				continue
			}
			fmt.Printf("%-32s  %s\n", ev.Name, ev.Addr)
		}
	}()

	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	for _, name := range flag.Args() {
		name := strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := r.Query(name); err != nil {
			fmt.Printf("%-32s  REJECTED: %v\n", name, err)
		}
	}

	if *responder {
		fmt.Printf("responding to mDNS questions for %s.local\n", *hostname)
	}

	select {
	case err := <-runDone:
		if err != nil && ctx.Err() == nil {
			log.Fatalf("resolver stopped: %v", err)
		}
	case <-ctx.Done():
		<-time.After(200 * time.Millisecond) // let in-flight queries settle
	}
}
