package resolv

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/protocol"
	"github.com/kelvinlabs/resolv/internal/table"
	"github.com/kelvinlabs/resolv/internal/wire"
)

// sendTimeout bounds a single outbound packet; the resolver's own retry
// timer, not this deadline, is what drives retransmission.
const sendTimeout = 2 * time.Second

// checkEntries drives the NEW→ASKING→{DONE,ERROR} state machine (§4.3).
// It runs on every one-second tick and right after a Query is accepted,
// and emits at most one outbound packet per run, breaking after the first send so a slow link isn't saturated
// by a burst of retries.
func (r *Resolver) checkEntries() {
	for i := 0; i < r.table.Len(); i++ {
		slot := r.table.Slot(i)

		switch slot.State {
		case table.StateNew:
			slot.State = table.StateAsking
			slot.Tmr = 1
			slot.Retries = 0
			r.emit(i, slot)
			return

		case table.StateAsking:
			slot.Tmr--
			if slot.Tmr > 0 {
				continue
			}

			slot.Retries++
			retryCap := r.maxRetries
			if slot.IsMDNS {
				retryCap = r.maxMDNSRetries
			}
			if slot.Retries >= retryCap {
				slot.State = table.StateError
				r.notify(FoundEvent{Name: slot.Name, Err: errRetriesExhausted})
				continue
			}

			slot.Tmr = slot.Retries
			r.emit(i, slot)
			return
		}
	}
}

// emit builds and sends the single outbound query for slot, whose
// transaction id is the invertible encoding of its table index (§3
// invariant 4), so a reply correlates back to the slot in O(1).
func (r *Resolver) emit(index int, slot *table.Slot) {
	header := wire.Header{
		ID:      protocol.EncodeTransactionID(index),
		QDCount: 1,
	}
	if !slot.IsMDNS {
		header.Flags1 = protocol.Flag1RD
	}

	buf := header.Encode(make([]byte, 0, wire.HeaderSize+64))
	buf, err := wire.EncodeQuestion(buf, slot.Name, r.family.RecordType(), protocol.ClassIN)
	if err != nil {
		slot.State = table.StateError
		r.notify(FoundEvent{Name: slot.Name, Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := r.transport.Send(ctx, buf, r.destFor(slot.IsMDNS)); err != nil {
		r.logger.Warn("emit query failed", zap.String("name", slot.Name), zap.Error(err))
	}
}

func (r *Resolver) destFor(isMDNS bool) net.Addr {
	if isMDNS {
		ip := protocol.MulticastAddrIPv4
		if r.family == protocol.FamilyIPv6 {
			ip = protocol.MulticastAddrIPv6
		}
		return &net.UDPAddr{IP: ip, Port: protocol.MDNSPort}
	}
	return &net.UDPAddr{IP: r.serverAddr, Port: protocol.DNSPort}
}
