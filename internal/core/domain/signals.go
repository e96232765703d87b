package domain

import "time"

// Stage is the workflow position a thread occupies.
type Stage string

const (
	StageReceive      Stage = "Receive"
	StageAuthenticate Stage = "Authenticate"
	StageCategorize   Stage = "Categorize"
	StageUpdate       Stage = "Update"
	StageResolution   Stage = "Resolution"
	StageEscalation   Stage = "Escalation"
	StageResolved     Stage = "Resolved"
	StageClose        Stage = "Close"
	StageReport       Stage = "Report"
)

// WorkflowStages lists every stage in workflow order.
var WorkflowStages = []Stage{
	StageReceive,
	StageAuthenticate,
	StageCategorize,
	StageUpdate,
	StageResolution,
	StageEscalation,
	StageResolved,
	StageClose,
	StageReport,
}

// Order returns the stage's position in WorkflowStages, or -1.
func (s Stage) Order() int {
	for i, stage := range WorkflowStages {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s Stage) IsValid() bool {
	return s.Order() >= 0
}

// AgeBand is the severity bucket of an average age.
type AgeBand string

const (
	AgeBandHealthy  AgeBand = "healthy"  // < 24h
	AgeBandAging    AgeBand = "aging"    // 24h - 48h
	AgeBandStale    AgeBand = "stale"    // 48h - 72h
	AgeBandOverdue  AgeBand = "overdue"  // 72h - 7d
	AgeBandCritical AgeBand = "critical" // > 7d
)

// Redistribution suggests moving part of a cell's load to another owner.
type Redistribution struct {
	MoveCount int    `json:"moveCount"`
	ToOwner   string `json:"toOwner"`
}

// HeatmapCell is one populated (owner, stage) pair.
type HeatmapCell struct {
	Owner       string          `json:"owner"`
	Stage       Stage           `json:"stage"`
	AvgAgeHours float64         `json:"avgAgeHours"`
	Count       int             `json:"count"`
	Band        AgeBand         `json:"band"`
	Suggestion  *Redistribution `json:"suggestion,omitempty"`
}

// Heatmap is the owner x stage bottleneck grid.
type Heatmap struct {
	Cells  []HeatmapCell `json:"cells"`
	Owners []string      `json:"owners"`
	Stages []Stage       `json:"stages"`
}

// OwnerStatus is the capacity state of a single owner.
type OwnerStatus string

const (
	OwnerHealthy  OwnerStatus = "healthy"
	OwnerWarning  OwnerStatus = "warning"
	OwnerCritical OwnerStatus = "critical"
)

// OwnerHealth is the per-owner row of the queue health report.
type OwnerHealth struct {
	Owner       string      `json:"owner"`
	OpenThreads int         `json:"openThreads"`
	Throughput  float64     `json:"throughput"`
	SLATarget   float64     `json:"slaTarget"`
	Status      OwnerStatus `json:"status"`
}

// QueueHealth summarizes whether open work is within capacity.
type QueueHealth struct {
	QueueHealth     float64       `json:"queueHealth"`
	OwnerStatuses   []OwnerHealth `json:"ownerStatuses"`
	TotalOpen       int           `json:"totalOpen"`
	TotalThroughput float64       `json:"totalThroughput"`
}

// RiskPoint is one topic on the risk radar.
type RiskPoint struct {
	Topic                 string  `json:"topic"`
	ValueAtRisk           float64 `json:"valueAtRisk"`
	EscalationProbability float64 `json:"escalationProbability"`
	Radius                float64 `json:"radius"`
	ThreadCount           int     `json:"threadCount"`
}

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertIntentSpike     AlertType = "intent_spike"
	AlertFrictionDelta   AlertType = "friction_delta"
	AlertSilentThreads   AlertType = "silent_threads"
	AlertSLABreachRisk   AlertType = "sla_breach_risk"
	AlertEscalationSurge AlertType = "escalation_surge"
)

// Severity ranks alerts; critical sorts ahead of warning.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from most to least urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// ResolveAction is a canned follow-up a dashboard can offer for an alert.
type ResolveAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Alert is a threshold-triggered warning about an operational metric.
type Alert struct {
	ID             string          `json:"id"`
	Type           AlertType       `json:"type"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Severity       Severity        `json:"severity"`
	Count          int             `json:"count"`
	Value          *float64        `json:"value,omitempty"`
	ResolveActions []ResolveAction `json:"resolveActions"`
}

// KPISnapshot is the queue-level aggregate input of the anomaly detector.
type KPISnapshot struct {
	TotalThreads            int     `json:"totalThreads" yaml:"totalThreads"`
	SLABreachRiskPercentage float64 `json:"slaBreachRiskPercentage" yaml:"slaBreachRiskPercentage"`
	EscalationRate          float64 `json:"escalationRate" yaml:"escalationRate"`
	EscalationCount         int     `json:"escalationCount" yaml:"escalationCount"`
	InternalPendingCount    int     `json:"internalPendingCount" yaml:"internalPendingCount"`
	AvgResolutionTimeDays   float64 `json:"avgResolutionTimeDays" yaml:"avgResolutionTimeDays"`
	UrgentThreadsCount      int     `json:"urgentThreadsCount" yaml:"urgentThreadsCount"`
	BusinessImpactScore     float64 `json:"businessImpactScore" yaml:"businessImpactScore"`
	CustomerSentimentIndex  float64 `json:"customerSentimentIndex" yaml:"customerSentimentIndex"`
}

// StageCount is one bar of the stage distribution.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// Dashboard bundles every signal computed from one snapshot.
type Dashboard struct {
	AsOf              time.Time    `json:"asOf"`
	ThreadCount       int          `json:"threadCount"`
	SkippedRecords    int          `json:"skippedRecords"`
	StageDistribution []StageCount `json:"stageDistribution"`
	Heatmap           Heatmap      `json:"heatmap"`
	QueueHealth       QueueHealth  `json:"queueHealth"`
	RiskRadar         []RiskPoint  `json:"riskRadar"`
	Alerts            []Alert      `json:"alerts"`
	KPI               KPISnapshot  `json:"kpi"`
}

// ThreadStage is the classification of a single thread.
type ThreadStage struct {
	ThreadID string `json:"threadId"`
	Owner    string `json:"owner"`
	Topic    string `json:"topic"`
	Stage    Stage  `json:"stage"`
}
