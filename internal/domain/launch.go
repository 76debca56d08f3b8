package domain

// LaunchStatus is the lifecycle state of a LaunchRecord.
type LaunchStatus string

// Launch lifecycle states. A record is born MONITORING and ends either
// TRADED (executor acted on it) or SUCCESS/FAILURE (observation window
// expired and the outcome was classified).
const (
	LaunchStatusMonitoring LaunchStatus = "monitoring"
	LaunchStatusTraded     LaunchStatus = "traded"
	LaunchStatusSuccess    LaunchStatus = "success"
	LaunchStatusFailure    LaunchStatus = "failure"
)

// LaunchRecord represents one candidate early-stage token from detection
// through outcome. Corresponds to launch_records table in PostgreSQL.
type LaunchRecord struct {
	LaunchID string // PRIMARY KEY, deterministic hash
	TokenID  string // tokens.token_id

	// Snapshot at detection time.
	LaunchPrice     float64
	InitialCap      float64 // market cap at detection (USD)
	InitialVolume   float64 // 24h volume at detection (USD)
	MinutesOnMarket float64 // estimated token age at detection

	Status     LaunchStatus
	DetectedAt int64 // Unix timestamp in milliseconds

	// Outcome fields, written when the observation window expires.
	OutcomePrice *float64
	FinalGain    *float64 // fractional gain over the window (1.1 = +110%)
	EvaluatedAt  *int64
}

// LaunchSnapshot is one observation of a monitored launch.
// Archived to ClickHouse launch_snapshots for later analytics.
type LaunchSnapshot struct {
	LaunchID    string
	TimestampMs int64
	Price       float64
	MarketCap   float64
}

// VolumePattern classifies market-cap development over the window.
type VolumePattern string

const (
	VolumePatternStable     VolumePattern = "stable"
	VolumePatternIncreasing VolumePattern = "increasing"
	VolumePatternDecreasing VolumePattern = "decreasing"
	VolumePatternSpike      VolumePattern = "spike"
)

// Qualitative pattern tags extracted from the snapshot series.
const (
	PatternEarlyPeak   = "early_peak"
	PatternLatePump    = "late_pump"
	PatternStrongOpen  = "strong_open"
	PatternWeakOpen    = "weak_open"
	PatternVolumeSpike = "volume_spike"
)

// LaunchAnalysis is the one-to-one outcome record for a completed
// observation window. Written exactly once per launch.
type LaunchAnalysis struct {
	LaunchID string // PRIMARY KEY, launch_records.launch_id

	Outcome   LaunchStatus // SUCCESS or FAILURE
	FinalGain float64      // fractional gain at the final snapshot

	// Informational fields, independent of the outcome decision.
	PeakPrice       float64
	PeakGain        float64 // fractional gain at the peak
	TimeToPeakMin   float64 // minutes from detection to the peak snapshot
	MaxDrawdown     float64 // (trough - peak) / peak, trough at or after peak
	InitialMomentum float64 // price change over the first quarter of the series
	VolumePattern   VolumePattern
	Patterns        []string // qualitative tags
	SuccessFactors  string   // free-form summary

	CreatedAt int64 // Unix timestamp in milliseconds
}
