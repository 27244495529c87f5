package resolv

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/kelvinlabs/resolv/internal/protocol"
)

// TestRunDispatchesQueryAndLookup exercises the real public API through an
// actual Run goroutine, confirming the command channel correctly threads
// Query/Lookup calls back to the single event-loop goroutine.
func TestRunDispatchesQueryAndLookup(t *testing.T) {
	r, mock := newTestResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	events, unsubscribe := r.Subscribe()
	defer unsubscribe()

	if err := r.Query("example.com"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	reply := buildReply(t, 0, 0x81, 0x00, "example.com", protocol.RecordTypeA, net.IPv4(1, 2, 3, 4).To4())
	mock.Deliver(reply, mock.LocalAddr())

	select {
	case ev := <-events:
		if ev.Name != "example.com" || !ev.Addr.Equal(net.IPv4(1, 2, 3, 4)) {
			t.Fatalf("event = %+v, want example.com -> 1.2.3.4", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the found event")
	}

	addr, found := r.Lookup("example.com")
	if !found || !addr.Equal(net.IPv4(1, 2, 3, 4)) {
		t.Fatalf("Lookup = %v, %v, want 1.2.3.4, true", addr, found)
	}

	cancel()
	select {
	case err := <-runDone:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}

func TestRunHandlesHostnameAndServerCommands(t *testing.T) {
	r, _ := newTestResolver(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	if got := r.GetHostname(); got != protocol.DefaultHostname {
		t.Errorf("GetHostname = %q, want %q", got, protocol.DefaultHostname)
	}

	if err := r.SetHostname("toaster"); err != nil {
		t.Fatalf("SetHostname: %v", err)
	}
	if got := r.GetHostname(); got != "toaster" {
		t.Errorf("GetHostname = %q, want %q", got, "toaster")
	}

	newServer := net.ParseIP("9.9.9.9")
	if err := r.Conf(newServer); err != nil {
		t.Fatalf("Conf: %v", err)
	}
	if got := r.GetServer(); !got.Equal(newServer) {
		t.Errorf("GetServer = %v, want %v", got, newServer)
	}
}

func TestGetServerReturnsNilBeforeRunStarts(t *testing.T) {
	r, _ := newTestResolver(t)
	if got := r.GetServer(); got != nil {
		t.Errorf("GetServer = %v, want nil before Run starts", got)
	}
}
