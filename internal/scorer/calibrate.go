package scorer

// Agreement describes how much independent support a candidate category has.
type Agreement struct {
	SignalCount   int
	DistinctTypes int
	HasExact      bool
}

const (
	agreementBonus  = 0.05
	loneWeakPenalty = 0.80
	maxCalibrated   = 0.99
)

// Calibrate converts a raw aggregated confidence into a calibrated one. All
// confidence arithmetic in the deterministic path funnels through here so the
// calibration stays testable in isolation.
//
// Confidence increases with agreement across independent signal types and is
// penalized when a category rests on a single non-exact signal.
func Calibrate(raw float64, a Agreement) float64 {
	c := raw

	if a.DistinctTypes >= 2 {
		c += agreementBonus * float64(a.DistinctTypes-1)
	}

	// A lone exact match (e.g. an unambiguous MCC hit) keeps its confidence;
	// anything weaker standing alone is not trusted at face value.
	if a.SignalCount == 1 && !a.HasExact {
		c *= loneWeakPenalty
	}

	if c < 0 {
		return 0
	}
	if c > maxCalibrated {
		return maxCalibrated
	}
	return c
}
