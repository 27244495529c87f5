package resolv

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/dnserr"
	"github.com/kelvinlabs/resolv/internal/protocol"
	"github.com/kelvinlabs/resolv/internal/table"
	"github.com/kelvinlabs/resolv/internal/wire"
)

// handleDatagram is the entry point for every inbound packet. Per §4.4,
// a packet with both flag bytes zero is a question, not a reply — it is
// routed to the mDNS responder rather than the response handler.
func (r *Resolver) handleDatagram(packet []byte, src net.Addr) {
	header, err := wire.DecodeHeader(packet)
	if err != nil {
		r.logger.Debug("dropped malformed datagram", zap.Error(err))
		return
	}

	if header.Flags1 == 0 && header.Flags2 == 0 {
		if r.mdnsResponderEnabled {
			r.handleQuestion(packet, header, src)
		}
		return
	}

	r.handleReply(packet, header)
}

// handleReply implements newdata (§4.4): correlate the reply to a slot
// by its transaction id, validate it's still expected, and either finish
// the slot or leave it ASKING so the retry timer drives recovery.
func (r *Resolver) handleReply(packet []byte, header wire.Header) {
	index := protocol.DecodeTransactionID(header.ID)
	slot, ok := r.table.ByTransactionIndex(index)
	if !ok {
		return
	}
	if slot.State != table.StateAsking {
		return
	}
	if header.ANCount == 0 {
		return
	}

	if rcode := header.Rcode(); rcode != 0 {
		slot.Err = rcode
		slot.State = table.StateError
		r.notify(FoundEvent{
			Name: slot.Name,
			Err:  &dnserr.ValidationError{Operation: "resolve", Reason: fmt.Sprintf("rcode %d", rcode)},
		})
		return
	}

	offset := wire.HeaderSize
	var err error
	for i := 0; i < int(header.QDCount); i++ {
		offset, err = wire.SkipQuestion(packet, offset)
		if err != nil {
			r.logger.Debug("dropped malformed reply", zap.String("name", slot.Name), zap.Error(err))
			return
		}
	}

	wantType := r.family.RecordType()
	wantLen := r.family.AddrLen()

	for i := 0; i < int(header.ANCount); i++ {
		answer, next, err := wire.DecodeAnswer(packet, offset)
		if err != nil {
			r.logger.Debug("dropped malformed reply", zap.String("name", slot.Name), zap.Error(err))
			return
		}
		offset = next

		if answer.Type == wantType && answer.Class.Mask() == protocol.ClassIN && len(answer.Addr) == wantLen {
			slot.Addr = net.IP(answer.Addr)
			slot.State = table.StateDone
			r.notify(FoundEvent{Name: slot.Name, Addr: slot.Addr})
			return
		}
	}
}
