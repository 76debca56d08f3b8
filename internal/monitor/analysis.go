package monitor

import (
	"fmt"
	"strings"

	"launchlab/internal/domain"
)

// Gain thresholds for outcome classification and tag extraction.
const (
	// successGain is the final gain required for a success outcome.
	// Judged on the last snapshot, never on the peak.
	successGain = 1.0

	// openMagnitude separates strong_open/weak_open from a neutral open.
	openMagnitude = 0.05
)

// analyze classifies a completed snapshot series. The series always starts
// with the detection-time snapshot and holds at least one point.
func analyze(launchID string, launchPrice, initialCap float64, detectedAt, now int64, series []domain.LaunchSnapshot) *domain.LaunchAnalysis {
	last := series[len(series)-1]
	finalGain := fractionalGain(launchPrice, last.Price)

	outcome := domain.LaunchStatusFailure
	if finalGain >= successGain {
		outcome = domain.LaunchStatusSuccess
	}

	peakIdx := peakIndex(series)
	peak := series[peakIdx]
	drawdown := maxDrawdown(series, peakIdx)
	momentum, _ := initialMomentum(series)
	pattern := classifyVolumePattern(series, initialCap)

	a := &domain.LaunchAnalysis{
		LaunchID:        launchID,
		Outcome:         outcome,
		FinalGain:       finalGain,
		PeakPrice:       peak.Price,
		PeakGain:        fractionalGain(launchPrice, peak.Price),
		TimeToPeakMin:   float64(peak.TimestampMs-detectedAt) / 60_000,
		MaxDrawdown:     drawdown,
		InitialMomentum: momentum,
		VolumePattern:   pattern,
		Patterns:        extractPatterns(series, peakIdx, momentum, pattern),
		CreatedAt:       now,
	}
	a.SuccessFactors = summarize(a)
	return a
}

func fractionalGain(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	return (current - base) / base
}

func peakIndex(series []domain.LaunchSnapshot) int {
	peak := 0
	for i, s := range series {
		if s.Price > series[peak].Price {
			peak = i
		}
	}
	return peak
}

// maxDrawdown is (trough - peak) / peak with the trough taken at or after
// the peak snapshot. Zero or negative.
func maxDrawdown(series []domain.LaunchSnapshot, peakIdx int) float64 {
	peak := series[peakIdx].Price
	if peak <= 0 {
		return 0
	}

	trough := peak
	for _, s := range series[peakIdx:] {
		if s.Price < trough {
			trough = s.Price
		}
	}
	return (trough - peak) / peak
}

// initialMomentum is the fractional price change over the first quarter of
// the series. Reports false when the series is too short to have a distinct
// first quarter.
func initialMomentum(series []domain.LaunchSnapshot) (float64, bool) {
	quarter := len(series) / 4
	if quarter < 1 {
		return 0, false
	}
	return fractionalGain(series[0].Price, series[quarter].Price), true
}

// classifyVolumePattern compares market-cap development against the initial
// cap. The first matching class wins.
func classifyVolumePattern(series []domain.LaunchSnapshot, initialCap float64) domain.VolumePattern {
	if initialCap <= 0 {
		return domain.VolumePatternStable
	}

	sum := 0.0
	peakCap := 0.0
	for _, s := range series {
		sum += s.MarketCap
		if s.MarketCap > peakCap {
			peakCap = s.MarketCap
		}
	}
	avg := sum / float64(len(series))

	switch {
	case avg > 2*initialCap:
		return domain.VolumePatternIncreasing
	case avg < 0.5*initialCap:
		return domain.VolumePatternDecreasing
	case avg > 0 && peakCap > 3*avg:
		return domain.VolumePatternSpike
	default:
		return domain.VolumePatternStable
	}
}

func extractPatterns(series []domain.LaunchSnapshot, peakIdx int, momentum float64, pattern domain.VolumePattern) []string {
	var tags []string

	n := len(series)
	if n >= 3 {
		if peakIdx < n/3 {
			tags = append(tags, domain.PatternEarlyPeak)
		} else if peakIdx >= n-n/3 {
			tags = append(tags, domain.PatternLatePump)
		}
	}

	if momentum >= openMagnitude {
		tags = append(tags, domain.PatternStrongOpen)
	} else if momentum <= -openMagnitude {
		tags = append(tags, domain.PatternWeakOpen)
	}

	if pattern == domain.VolumePatternSpike {
		tags = append(tags, domain.PatternVolumeSpike)
	}
	return tags
}

// summarize renders the free-form success-factors line from the computed
// features.
func summarize(a *domain.LaunchAnalysis) string {
	var b strings.Builder

	if a.Outcome == domain.LaunchStatusSuccess {
		fmt.Fprintf(&b, "doubled within the window (final %+.0f%%)", a.FinalGain*100)
	} else {
		fmt.Fprintf(&b, "closed at %+.0f%%", a.FinalGain*100)
	}
	fmt.Fprintf(&b, "; peak %+.0f%% at %.0f min", a.PeakGain*100, a.TimeToPeakMin)
	fmt.Fprintf(&b, "; drawdown %.0f%%", a.MaxDrawdown*100)
	fmt.Fprintf(&b, "; %s volume", a.VolumePattern)
	if len(a.Patterns) > 0 {
		fmt.Fprintf(&b, "; %s", strings.Join(a.Patterns, ", "))
	}
	return b.String()
}
