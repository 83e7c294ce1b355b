package util

import (
	"testing"
)

func TestFNV64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{name: "basic string", input: "hello", wantLen: 16},
		{name: "empty string", input: "", wantLen: 16},
		{name: "long string", input: "this is a very long string for testing hash function", wantLen: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := FNV64(tt.input)
			if len(hash) != tt.wantLen {
				t.Errorf("FNV64() hash length = %d, want %d", len(hash), tt.wantLen)
			}
		})
	}
}

func TestFNV64Consistency(t *testing.T) {
	// 相同输入应该产生相同输出
	if FNV64("test-consistency") != FNV64("test-consistency") {
		t.Error("FNV64() should produce same hash for same input")
	}
	if FNV64("a") == FNV64("b") {
		t.Error("FNV64() should differ for different input")
	}
}

func TestEventKey(t *testing.T) {
	if EventKey("gate", 1) != EventKey("gate", 1) {
		t.Fatalf("EventKey not stable")
	}
	if EventKey("gate", 1) == EventKey("guard", 1) {
		t.Fatalf("EventKey should depend on variant")
	}
}
