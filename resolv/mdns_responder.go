package resolv

import (
	"context"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kelvinlabs/resolv/internal/protocol"
	"github.com/kelvinlabs/resolv/internal/wire"
)

// handleQuestion implements the mDNS responder (§4.5): match each
// question against the resolver's own hostname and, on a hit, build and
// send an authoritative answer.
func (r *Resolver) handleQuestion(packet []byte, header wire.Header, src net.Addr) {
	offset := wire.HeaderSize
	wantName := strings.ToLower(r.hostname) + ".local"
	wantType := r.family.RecordType()

	for i := 0; i < int(header.QDCount); i++ {
		q, next, err := wire.DecodeQuestion(packet, offset)
		if err != nil {
			r.logger.Debug("dropped malformed question", zap.Error(err))
			return
		}
		offset = next

		if q.Class.Mask() != protocol.ClassIN {
			continue
		}
		if q.Type != wantType && q.Type != protocol.RecordTypeANY {
			continue
		}
		if strings.ToLower(q.Name) != wantName {
			continue
		}

		r.respondToQuestion(header.ID, src)
		return
	}
}

// respondToQuestion builds one response packet carrying an answer for
// every usable local address (§4.5): a single A record for IPv4, or one
// AAAA record per usable IPv6 address, with every answer after the first
// naming itself via a back-pointer to the first answer's name.
func (r *Resolver) respondToQuestion(id uint16, src net.Addr) {
	addrs := r.localAddrSource()
	if len(addrs) == 0 {
		return
	}

	header := wire.Header{
		ID:      id,
		Flags1:  protocol.Flag1Response | protocol.Flag1Authority,
		ANCount: uint16(len(addrs)),
	}
	buf := header.Encode(make([]byte, 0, wire.HeaderSize+32*len(addrs)))

	rtype := r.family.RecordType()
	class := protocol.ClassIN | protocol.ClassCacheFlushBit
	name := strings.ToLower(r.hostname) + ".local"

	buf, err := wire.EncodeAnswer(buf, name, rtype, class, protocol.DefaultMDNSResponderTTL, addrs[0])
	if err != nil {
		r.logger.Warn("build mdns response failed", zap.Error(err))
		return
	}
	for _, addr := range addrs[1:] {
		buf = wire.EncodeAnswerPointer(buf, wire.HeaderSize, rtype, class, protocol.DefaultMDNSResponderTTL, addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	// The responder only ever handles questions while bound to port 5353
	// (mdnsResponderEnabled is the precondition for handleDatagram to call
	// here at all), so the reply always goes back to the multicast group
	// per §4.5's first clause; src is accepted for symmetry with the
	// unicast-reply clause but unused by this configuration.
	_ = src
	if err := r.transport.Send(ctx, buf, r.destFor(true)); err != nil {
		r.logger.Warn("send mdns response failed", zap.Error(err))
	}
}

// localAddresses collects the addresses the mDNS responder advertises:
// the first usable non-loopback IPv4 address for an IPv4 build, or every
// usable IPv6 address (link-local only unless includeGlobalIPv6) for an
// IPv6 build.
func (r *Resolver) localAddresses() [][]byte {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var addrs [][]byte
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifaceAddrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP

			if r.family == protocol.FamilyIPv4 {
				ip4 := ip.To4()
				if ip4 == nil || ip4.IsLoopback() {
					continue
				}
				addrs = append(addrs, []byte(ip4))
				continue
			}

			if ip.To4() != nil || ip.IsLoopback() {
				continue
			}
			if !r.includeGlobalIPv6 && !ip.IsLinkLocalUnicast() {
				continue
			}
			addrs = append(addrs, []byte(ip.To16()))
		}
	}

	if r.family == protocol.FamilyIPv4 && len(addrs) > 1 {
		addrs = addrs[:1]
	}
	return addrs
}

// checkHostnameCollision implements §4.5's collision check: issue a
// normal mDNS query for "<hostname>.local" against ourselves. If that
// query ever reaches DONE (see notify), renameOnCollision fires.
func (r *Resolver) checkHostnameCollision() {
	if !r.mdnsResponderEnabled {
		return
	}
	probeName := strings.ToLower(r.hostname) + ".local"
	index, _ := r.table.FindOrEvict(probeName)
	r.table.Slot(index).IsMDNS = true
	r.collisionProbe = probeName
}

// renameOnCollision implements the rename behavior §9 flags as stubbed
// in the source this resolver is modeled on: append "-2", "-3", … to the
// base hostname and re-probe, up to MaxRenameAttempts.
func (r *Resolver) renameOnCollision() {
	r.renameAttempts++
	if r.renameAttempts >= MaxRenameAttempts {
		r.notify(FoundEvent{Name: r.hostname, Err: errRenameAttemptsExhausted})
		return
	}
	r.hostname = r.baseHostname + "-" + strconv.Itoa(r.renameAttempts+1)
	r.checkHostnameCollision()
}
