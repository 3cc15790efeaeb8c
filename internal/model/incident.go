package model

import "time"

type Category string

const (
	CategoryAnomaly           Category = "anomaly"
	CategoryBruteForce        Category = "brute_force"
	CategorySuspiciousPattern Category = "suspicious_pattern"
	CategoryRateLimit         Category = "rate_limit"
	CategoryUnauthorized      Category = "unauthorized"
	CategoryDataExfiltration  Category = "data_exfiltration"
	CategorySystemAbuse       Category = "system_abuse"
)

var Categories = []Category{
	CategoryAnomaly,
	CategoryBruteForce,
	CategorySuspiciousPattern,
	CategoryRateLimit,
	CategoryUnauthorized,
	CategoryDataExfiltration,
	CategorySystemAbuse,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

var Statuses = []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusFalsePositive}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// Active reports whether the incident still needs attention
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInvestigating
}

type Label string

const (
	LabelNormal  Label = "normal"
	LabelAnomaly Label = "anomaly"
)

// EventSnapshot is the minimal event copy stored with an incident
type EventSnapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Duration  *int64    `json:"duration,omitempty"`
}

type Pattern struct {
	Action     string          `json:"action"`
	Count      int             `json:"count"`
	TimeWindow int64           `json:"timeWindow"` // milliseconds
	Events     []EventSnapshot `json:"events"`
}

// Features is the summary handed to the downstream classifier
type Features struct {
	RequestCount int      `json:"requestCount"`
	TimeWindow   int64    `json:"timeWindow"`
	ActionTypes  []string `json:"actionTypes"`
	AvgDuration  float64  `json:"avgDuration"`
	ErrorRate    float64  `json:"errorRate"`
}

type TrainingData struct {
	Features   Features `json:"features"`
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
}

// Incident is a durable security record. JSON field names match the persisted blob format.
type Incident struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Status    Status    `json:"status"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Reason      string `json:"reason"`

	SourceIP  string `json:"sourceIP"`
	Port      string `json:"port,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	SessionID string `json:"sessionId,omitempty"`

	Pattern        Pattern      `json:"pattern"`
	AITrainingData TrainingData `json:"aiTrainingData"`

	Tags       []string   `json:"tags,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	AssignedTo string     `json:"assignedTo,omitempty"`
}
