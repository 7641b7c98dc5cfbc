package protocol

import (
	"bytes"
	"testing"
)

func TestTriggerPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  TriggerPacket
	}{
		{"press with key", TriggerPacket{Key: "f13", Edge: EdgePress}},
		{"release with key", TriggerPacket{Key: "f13", Edge: EdgeRelease}},
		{"default key press", TriggerPacket{Edge: EdgePress}},
		{"vk key", TriggerPacket{Key: "vk_255", Edge: EdgeRelease}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalTriggerPacket(MarshalTriggerPacket(tt.pkt))
			if err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if got != tt.pkt {
				t.Fatalf("round trip = %+v, want %+v", got, tt.pkt)
			}
		})
	}
}

func TestUnmarshalTriggerPacketRejectsBadEdge(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x10) // field 2 varint
	buf = append(buf, 7)
	if _, err := UnmarshalTriggerPacket(buf); err == nil {
		t.Fatal("edge 7 accepted")
	}
}

func TestDataPacketRoundTrip(t *testing.T) {
	iv := bytes.Repeat([]byte{0xAB}, 12)
	tag := bytes.Repeat([]byte{0xCD}, 16)
	enc := []byte("ciphertext bytes")

	raw, err := MarshalDataPacket(iv, tag, enc, 42)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	pkt, err := UnmarshalDataPacket(raw)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !bytes.Equal(pkt.IV, iv) || !bytes.Equal(pkt.Tag, tag) || !bytes.Equal(pkt.Encrypted, enc) {
		t.Fatal("payloads did not round trip")
	}
	if pkt.PacketNum != 42 {
		t.Fatalf("packet num = %d, want 42", pkt.PacketNum)
	}
}

func TestMarshalDataPacketValidatesSizes(t *testing.T) {
	if _, err := MarshalDataPacket(make([]byte, 11), make([]byte, 16), nil, 1); err == nil {
		t.Fatal("11-byte iv accepted")
	}
	if _, err := MarshalDataPacket(make([]byte, 12), make([]byte, 15), nil, 1); err == nil {
		t.Fatal("15-byte tag accepted")
	}
}

func TestUnmarshalDataPacketValidatesSizes(t *testing.T) {
	// Valid framing, wrong iv length.
	var buf []byte
	buf = append(buf, 0x0a, 4)
	buf = append(buf, 1, 2, 3, 4)
	if _, err := UnmarshalDataPacket(buf); err == nil {
		t.Fatal("4-byte iv accepted")
	}
}

func TestUnmarshalDataPacketTruncated(t *testing.T) {
	iv := make([]byte, 12)
	tag := make([]byte, 16)
	raw, _ := MarshalDataPacket(iv, tag, []byte("payload"), 7)
	for _, cut := range []int{1, len(raw) / 2, len(raw) - 1} {
		if _, err := UnmarshalDataPacket(raw[:cut]); err == nil {
			t.Errorf("truncated packet of %d bytes accepted", cut)
		}
	}
}

func TestMarshalHello(t *testing.T) {
	raw := MarshalHello("holdvox", 1)
	if len(raw) == 0 {
		t.Fatal("empty hello")
	}
	// Reuse the trigger decoder shape: field 1 string, field 2 varint.
	pkt, err := UnmarshalTriggerPacket(raw)
	if err != nil {
		t.Fatalf("hello framing invalid: %v", err)
	}
	if pkt.Key != "holdvox" {
		t.Fatalf("host = %q", pkt.Key)
	}
}
