package types

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation is a metric that crossed an operational threshold.
type Violation struct {
	Metric   string   `json:"metric"`
	Severity Severity `json:"severity"`
	Observed float64  `json:"observed"`
	Limit    float64  `json:"limit"`
}

type ActionType string

const (
	ActionScaleGateway ActionType = "scale_gateway"
	ActionScaleBackend ActionType = "scale_backend"
	ActionReduceLoad   ActionType = "reduce_load"
	ActionRollback     ActionType = "rollback"
	ActionCombined     ActionType = "combined"
	ActionInvestigate  ActionType = "investigate"
)

// Action priorities; lower runs first.
const (
	PriorityImmediate = 1
	PriorityHigh      = 2
	PriorityLow       = 3
)

type RemediationAction struct {
	Priority    int        `json:"priority"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description"`
	Rationale   string     `json:"rationale"`
	Command     string     `json:"command"`
}
