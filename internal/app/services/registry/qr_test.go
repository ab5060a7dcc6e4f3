package registry

import (
	"testing"
	"time"
)

func TestDecodePayloadBareForm(t *testing.T) {
	id, err := DecodePayload("EVENT:evt-123")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "evt-123" {
		t.Fatalf("got %q, want evt-123", id)
	}
}

func TestDecodePayloadSignedForm(t *testing.T) {
	id, err := DecodePayload("EVENT:evt-123:TIMESTAMP:1700000000000:HASH:deadbeef")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "evt-123" {
		t.Fatalf("got %q, want evt-123", id)
	}
}

func TestDecodePayloadRejectsMalformed(t *testing.T) {
	if _, err := DecodePayload("NOT-AN-EVENT"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestQRCodecEncodeVerifyRoundTrip(t *testing.T) {
	codec, err := NewQRCodec([]byte("root-secret"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	now := time.Unix(1700000000, 0).UTC()
	payload := codec.Encode("evt-1", now)

	id, ok := codec.Verify(payload)
	if !ok {
		t.Fatal("expected payload to verify")
	}
	if id != "evt-1" {
		t.Fatalf("got %q, want evt-1", id)
	}
}

func TestQRCodecVerifyRejectsTamperedHash(t *testing.T) {
	codec, err := NewQRCodec([]byte("root-secret"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	payload := codec.Encode("evt-1", time.Now())
	tampered := payload[:len(payload)-4] + "beef"

	if _, ok := codec.Verify(tampered); ok {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestQRCodecVerifyAcceptsBareForm(t *testing.T) {
	codec, err := NewQRCodec([]byte("root-secret"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	id, ok := codec.Verify("EVENT:evt-2")
	if !ok || id != "evt-2" {
		t.Fatalf("got (%q, %v), want (evt-2, true)", id, ok)
	}
}

func TestNewQRCodecRejectsEmptySecret(t *testing.T) {
	if _, err := NewQRCodec(nil); err == nil {
		t.Fatal("expected error for empty root secret")
	}
}
