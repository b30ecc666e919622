package patterns

import (
	"ChartScan/internal/domain/models"
)

// Catalog returns every detector in scanner tie-break order.
func Catalog() []Detector {
	return []Detector{
		MomentumAlignment{},
		VolumeBreakout{},
		ConsolidationBreakout{},
		BullFlag{},
		AscendingTriangle{},
		ReversalAfterDecline{},
		GapUpHold{},
		MA20Pullback{},
		CupAndHandle{},
		DoubleBottom{},
	}
}

// Filter keeps the detectors named in only, preserving catalog order.
// An empty list keeps them all.
func Filter(all []Detector, only []models.Pattern) []Detector {
	if len(only) == 0 {
		return all
	}
	want := make(map[models.Pattern]bool, len(only))
	for _, p := range only {
		want[p] = true
	}
	out := make([]Detector, 0, len(only))
	for _, d := range all {
		if want[d.Pattern()] {
			out = append(out, d)
		}
	}
	return out
}
