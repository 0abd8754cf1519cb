package stt

import "testing"

func TestFloatToPCM16(t *testing.T) {
	buf := floatToPCM16([]float32{0, 0.5, -0.5, 1.0, -1.0, 2.0})
	if len(buf) != 12 {
		t.Fatalf("got %d bytes, want 12", len(buf))
	}

	sample := func(i int) int16 {
		return int16(uint16(buf[i*2]) | uint16(buf[i*2+1])<<8)
	}

	if sample(0) != 0 {
		t.Errorf("sample 0 = %d, want 0", sample(0))
	}
	if sample(1) != 16383 {
		t.Errorf("sample 1 = %d, want 16383", sample(1))
	}
	if sample(2) != -16383 {
		t.Errorf("sample 2 = %d, want -16383", sample(2))
	}
	if sample(3) != 32767 {
		t.Errorf("full scale = %d, want 32767", sample(3))
	}
	if sample(4) != -32767 {
		t.Errorf("negative full scale = %d, want -32767", sample(4))
	}
	// Out-of-range input saturates instead of wrapping.
	if sample(5) != 32767 {
		t.Errorf("over-range sample = %d, want 32767", sample(5))
	}
}

func TestAverageConfidence(t *testing.T) {
	var r voskResult
	if got := averageConfidence(r); got != 0 {
		t.Errorf("empty result confidence = %v, want 0", got)
	}

	r.Result = []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	}{
		{Conf: 1.0},
		{Conf: 0.5},
	}
	if got := averageConfidence(r); got != 0.75 {
		t.Errorf("confidence = %v, want 0.75", got)
	}
}
