package chart

import (
	"encoding/base64"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPerformanceRendersPNG(t *testing.T) {
	encoded, err := Performance(0.0125, 0.5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("plot is not valid base64: %v", err)
	}
	if len(raw) < len(pngMagic) {
		t.Fatalf("plot too short: %d bytes", len(raw))
	}
	for i, b := range pngMagic {
		if raw[i] != b {
			t.Fatalf("plot is not a PNG, header = %x", raw[:4])
		}
	}
}

func TestPerformanceZeroValues(t *testing.T) {
	// All-zero bars must still render; the renderer rejects empty ranges.
	if _, err := Performance(0, 0); err != nil {
		t.Errorf("zero-value plot should render: %v", err)
	}
}

func TestPerformanceNegativeMemoryDelta(t *testing.T) {
	// RSS can shrink between samples, producing a negative delta.
	if _, err := Performance(0.01, -0.25); err != nil {
		t.Errorf("negative memory plot should render: %v", err)
	}
}
