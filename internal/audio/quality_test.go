package audio

import (
	"math"
	"testing"
)

func TestAnalyzeEmptyBuffer(t *testing.T) {
	q := Analyze(nil)
	if q.RMS != 0 || q.Peak != 0 || q.ClippingPercent != 0 {
		t.Errorf("empty buffer produced non-zero metrics: %+v", q)
	}
}

func TestAnalyzeConstantSignal(t *testing.T) {
	q := Analyze(tone(1000, 0.5))
	if math.Abs(q.RMS-0.5) > 1e-6 {
		t.Errorf("RMS = %v, want 0.5", q.RMS)
	}
	if math.Abs(q.Peak-0.5) > 1e-6 {
		t.Errorf("Peak = %v, want 0.5", q.Peak)
	}
	if q.ClippingPercent != 0 {
		t.Errorf("ClippingPercent = %v, want 0", q.ClippingPercent)
	}
}

func TestAnalyzeClipping(t *testing.T) {
	// 25 of 100 samples sit at full scale, beyond the 0.99 ceiling.
	samples := make([]float32, 100)
	for i := 0; i < 25; i++ {
		samples[i] = 1.0
	}
	for i := 25; i < 100; i++ {
		samples[i] = 0.1
	}

	q := Analyze(samples)
	if q.ClippingPercent != 25 {
		t.Errorf("ClippingPercent = %v, want 25", q.ClippingPercent)
	}

	// Negative excursions clip too.
	samples[30] = -1.0
	if q := Analyze(samples); q.ClippingPercent != 26 {
		t.Errorf("ClippingPercent with negative clip = %v, want 26", q.ClippingPercent)
	}
}

func TestQualityLevels(t *testing.T) {
	cases := []struct {
		rms  float64
		want QualityLevel
	}{
		{0.0005, QualityTooQuiet},
		{0.005, QualityQuiet},
		{0.05, QualityGood},
		{0.2, QualityExcellent},
		{0.5, QualityTooLoud},
	}
	for _, tc := range cases {
		q := Quality{RMS: tc.rms}
		if got := q.Level(); got != tc.want {
			t.Errorf("Level(rms=%v) = %v, want %v", tc.rms, got, tc.want)
		}
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Errorf("rms(nil) = %v, want 0", got)
	}
	if got := rms(tone(480, 0.25)); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("rms of constant 0.25 = %v", got)
	}
}

func TestSuccessRate(t *testing.T) {
	var s StrategyStats
	if s.SuccessRate() != 0 {
		t.Error("empty stats should report rate 0")
	}
	s.Success = 3
	s.Failure = 1
	if got := s.SuccessRate(); got != 0.75 {
		t.Errorf("SuccessRate = %v, want 0.75", got)
	}
}
