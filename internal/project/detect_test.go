package project

import "testing"

func TestDetectNameNeverEmpty(t *testing.T) {
	if got := DetectName(); got == "" {
		t.Fatal("DetectName returned empty string")
	}
}
