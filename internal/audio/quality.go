package audio

import "math"

// clippingCeiling is the amplitude at or beyond which a sample counts as
// clipped.
const clippingCeiling = 0.99

// Quality holds signal metrics for a sample buffer.
type Quality struct {
	// RMS is the root-mean-square amplitude.
	RMS float64

	// Peak is the maximum absolute amplitude.
	Peak float64

	// ClippingPercent is the percentage of samples with |x| > 0.99.
	ClippingPercent float64
}

// QualityLevel is a qualitative bucket for a signal's RMS level.
type QualityLevel int

const (
	QualityTooQuiet QualityLevel = iota
	QualityQuiet
	QualityGood
	QualityExcellent
	QualityTooLoud
)

// String returns an actionable label for the level.
func (l QualityLevel) String() string {
	switch l {
	case QualityTooQuiet:
		return "too quiet (check microphone)"
	case QualityQuiet:
		return "quiet (speak louder)"
	case QualityGood:
		return "good"
	case QualityExcellent:
		return "excellent"
	case QualityTooLoud:
		return "too loud (saturation risk)"
	default:
		return "unknown"
	}
}

// Level buckets the RMS into a qualitative rating.
func (q Quality) Level() QualityLevel {
	switch {
	case q.RMS < 0.001:
		return QualityTooQuiet
	case q.RMS < 0.01:
		return QualityQuiet
	case q.RMS < 0.1:
		return QualityGood
	case q.RMS < 0.3:
		return QualityExcellent
	default:
		return QualityTooLoud
	}
}

// Analyze computes RMS, peak and clipping ratio over a sample buffer.
func Analyze(samples []float32) Quality {
	if len(samples) == 0 {
		return Quality{}
	}

	var sum float64
	var peak float64
	clipped := 0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		a := math.Abs(v)
		if a > peak {
			peak = a
		}
		if a > clippingCeiling {
			clipped++
		}
	}

	return Quality{
		RMS:             math.Sqrt(sum / float64(len(samples))),
		Peak:            peak,
		ClippingPercent: float64(clipped) / float64(len(samples)) * 100,
	}
}

// rms is the energy gate used by the VAD, shared with Analyze.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// QualityReport is the result of a short diagnostic capture.
type QualityReport struct {
	Quality
	Level QualityLevel

	// Err is set when the probe capture itself failed.
	Err error
}

// OK reports whether the probe produced usable metrics.
func (r QualityReport) OK() bool {
	return r.Err == nil
}
