package quote

// Severity buckets price impact for display.
type Severity string

const (
	SeverityLow     Severity = "low"
	SeverityWarning Severity = "warning"
	SeverityHigh    Severity = "high"
	SeverityInvalid Severity = "invalid"
)

// Impact thresholds in bps.
const (
	WarningImpactBps = 300
	HighImpactBps    = 500
	InvalidImpactBps = 1000
)

// Classify maps an impact in bps to a Severity. Thresholds are inclusive.
func Classify(impactBps int64) Severity {
	switch {
	case impactBps >= InvalidImpactBps:
		return SeverityInvalid
	case impactBps >= HighImpactBps:
		return SeverityHigh
	case impactBps >= WarningImpactBps:
		return SeverityWarning
	default:
		return SeverityLow
	}
}
