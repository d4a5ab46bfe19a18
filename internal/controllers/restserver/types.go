package restserver

import "time"

// ResultResponse is the wire form of one engine evaluation. Non-finite
// values are sent as null so JSON encoding never fails on an unbounded rate.
type ResultResponse struct {
	Scenario    string         `json:"scenario,omitempty"`
	Rate        *float64       `json:"rate"`
	DLDt        *float64       `json:"dl_dt"`
	Numerator   *float64       `json:"numerator"`
	Denominator *float64       `json:"denominator"`
	Tolerance   float64        `json:"tolerance"`
	Condition   string         `json:"condition"`
	Trace       *TraceResponse `json:"trace,omitempty"`
}

// TraceResponse carries every intermediate quantity of a verbose evaluation
type TraceResponse struct {
	HTerminus   *float64 `json:"h_terminus"`
	HAdjacent   *float64 `json:"h_adjacent"`
	HyTerminus  *float64 `json:"hy_terminus"`
	HyAdjacent  *float64 `json:"hy_adjacent"`
	UTerminus   *float64 `json:"u_terminus"`
	UAdjacent   *float64 `json:"u_adjacent"`
	Dx          *float64 `json:"dx"`
	DHDx        *float64 `json:"dh_dx"`
	DHyDx       *float64 `json:"dhy_dx"`
	DUDx        *float64 `json:"du_dx"`
	MassBalance *float64 `json:"mass_balance"`
	Numerator   *float64 `json:"numerator"`
	Denominator *float64 `json:"denominator"`
	DLDt        *float64 `json:"dl_dt"`
	Rate        *float64 `json:"rate"`
}

// ScenarioSummary describes a configured scenario
type ScenarioSummary struct {
	Name      string `json:"name"`
	YieldType string `json:"yield_type"`
	Points    int    `json:"points"`
	Trim      int    `json:"trim"`
}

// SweepPointResponse is one sweep value and its outcome
type SweepPointResponse struct {
	Index  int             `json:"index"`
	Value  float64         `json:"value"`
	Result *ResultResponse `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SweepSummaryResponse mirrors sweep.Summary
type SweepSummaryResponse struct {
	Points         int      `json:"points"`
	Conditioned    int      `json:"conditioned"`
	IllConditioned int      `json:"ill_conditioned"`
	Failed         int      `json:"failed"`
	MeanRate       *float64 `json:"mean_rate"`
	StdDevRate     *float64 `json:"stddev_rate"`
	MinRate        *float64 `json:"min_rate"`
	MaxRate        *float64 `json:"max_rate"`
	SignChanges    int      `json:"sign_changes"`
}

// SweepResponse is the wire form of a completed sweep
type SweepResponse struct {
	RunID      string               `json:"run_id"`
	Sweep      string               `json:"sweep"`
	Scenario   string               `json:"scenario"`
	Parameter  string               `json:"parameter"`
	Convention string               `json:"convention"`
	Stored     bool                 `json:"stored"`
	Summary    SweepSummaryResponse `json:"summary"`
	Points     []SweepPointResponse `json:"points"`
}

// StoredPointResponse is one point of a stored sweep run
type StoredPointResponse struct {
	Index       int      `json:"index"`
	Value       float64  `json:"value"`
	Rate        *float64 `json:"rate"`
	DLDt        *float64 `json:"dl_dt"`
	Numerator   *float64 `json:"numerator"`
	Denominator *float64 `json:"denominator"`
	Condition   string   `json:"condition,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// StoredRunResponse is a sweep run read back from the results store
type StoredRunResponse struct {
	RunID      string                `json:"run_id"`
	Sweep      string                `json:"sweep"`
	Scenario   string                `json:"scenario"`
	Parameter  string                `json:"parameter"`
	Convention string                `json:"convention"`
	Start      float64               `json:"start"`
	Stop       float64               `json:"stop"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Summary    SweepSummaryResponse  `json:"summary"`
	Points     []StoredPointResponse `json:"points"`
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	Version    string  `json:"version"`
	Convention string  `json:"convention"`
	Tolerance  float64 `json:"tolerance"`
	Scenarios  int     `json:"scenarios"`
	Sweeps     int     `json:"sweeps"`
	Storage    bool    `json:"storage"`
}
