package wire

import (
	"testing"

	"github.com/kelvinlabs/resolv/internal/protocol"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{ID: 61616, Flags1: protocol.Flag1RD, QDCount: 1}
	buf := h.Encode(nil)
	if len(buf) != HeaderSize {
		t.Fatalf("encoded header length = %d, want %d", len(buf), HeaderSize)
	}

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("DecodeHeader = %+v, want %+v", got, h)
	}
}

func TestHeaderIsResponseAndRcode(t *testing.T) {
	h := Header{Flags1: protocol.Flag1Response, Flags2: protocol.RcodeNameError}
	if !h.IsResponse() {
		t.Error("IsResponse() = false, want true")
	}
	if h.Rcode() != protocol.RcodeNameError {
		t.Errorf("Rcode() = %d, want %d", h.Rcode(), protocol.RcodeNameError)
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, 4)); err == nil {
		t.Fatal("expected an error decoding a too-short header")
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	buf, err := EncodeQuestion(nil, "example.com", protocol.RecordTypeA, protocol.ClassIN)
	if err != nil {
		t.Fatalf("EncodeQuestion: %v", err)
	}

	q, next, err := DecodeQuestion(buf, 0)
	if err != nil {
		t.Fatalf("DecodeQuestion: %v", err)
	}
	if q.Name != "example.com" || q.Type != protocol.RecordTypeA || q.Class != protocol.ClassIN {
		t.Errorf("DecodeQuestion = %+v", q)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
}

func TestSkipQuestion(t *testing.T) {
	buf, err := EncodeQuestion(nil, "example.com", protocol.RecordTypeA, protocol.ClassIN)
	if err != nil {
		t.Fatalf("EncodeQuestion: %v", err)
	}
	next, err := SkipQuestion(buf, 0)
	if err != nil {
		t.Fatalf("SkipQuestion: %v", err)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
}

func TestAnswerRoundTrip(t *testing.T) {
	addr := []byte{93, 184, 216, 34}
	buf, err := EncodeAnswer(nil, "example.com", protocol.RecordTypeA, protocol.ClassIN, 300, addr)
	if err != nil {
		t.Fatalf("EncodeAnswer: %v", err)
	}

	ans, next, err := DecodeAnswer(buf, 0)
	if err != nil {
		t.Fatalf("DecodeAnswer: %v", err)
	}
	if ans.Name != "example.com" || ans.Type != protocol.RecordTypeA || ans.TTL != 300 {
		t.Errorf("DecodeAnswer = %+v", ans)
	}
	if string(ans.Addr) != string(addr) {
		t.Errorf("Addr = %v, want %v", ans.Addr, addr)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
}

func TestAnswerPointerRoundTrip(t *testing.T) {
	first, err := EncodeAnswer(Header{ANCount: 2}.Encode(nil), "contiki.local", protocol.RecordTypeAAAA, protocol.ClassIN|protocol.ClassCacheFlushBit, 120, make([]byte, 16))
	if err != nil {
		t.Fatalf("EncodeAnswer: %v", err)
	}

	buf := EncodeAnswerPointer(append([]byte{}, first...), HeaderSize, protocol.RecordTypeAAAA, protocol.ClassIN|protocol.ClassCacheFlushBit, 120, make([]byte, 16))

	second, next, err := DecodeAnswer(buf, len(first))
	if err != nil {
		t.Fatalf("DecodeAnswer: %v", err)
	}
	if second.Name != "contiki.local" {
		t.Errorf("pointer-derived name = %q, want %q", second.Name, "contiki.local")
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
}

func TestDecodeAnswerTruncatedRdata(t *testing.T) {
	buf, err := EncodeAnswer(nil, "example.com", protocol.RecordTypeA, protocol.ClassIN, 300, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("EncodeAnswer: %v", err)
	}
	if _, _, err := DecodeAnswer(buf[:len(buf)-2], 0); err == nil {
		t.Fatal("expected an error decoding truncated rdata")
	}
}
