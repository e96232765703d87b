package domain

import "time"

// ThreadDocument is the wire shape of a thread record (JSON request bodies and
// JSON/YAML snapshot files).
type ThreadDocument struct {
	ThreadID             string     `json:"threadId" yaml:"threadId"`
	Owner                string     `json:"owner,omitempty" yaml:"owner,omitempty"`
	AssignedTo           string     `json:"assignedTo,omitempty" yaml:"assignedTo,omitempty"`
	ResolutionStatus     string     `json:"resolutionStatus" yaml:"resolutionStatus"`
	ActionPendingStatus  string     `json:"actionPendingStatus" yaml:"actionPendingStatus"`
	ActionPendingFrom    string     `json:"actionPendingFrom,omitempty" yaml:"actionPendingFrom,omitempty"`
	EscalationCount      int        `json:"escalationCount" yaml:"escalationCount"`
	FollowUpRequired     bool       `json:"followUpRequired" yaml:"followUpRequired"`
	NextActionSuggestion *string    `json:"nextActionSuggestion,omitempty" yaml:"nextActionSuggestion,omitempty"`
	FirstMessageAt       *time.Time `json:"firstMessageAt,omitempty" yaml:"firstMessageAt,omitempty"`
	LastMessageAt        *time.Time `json:"lastMessageAt,omitempty" yaml:"lastMessageAt,omitempty"`
	Priority             string     `json:"priority" yaml:"priority"`
	BusinessImpactScore  *float64   `json:"businessImpactScore,omitempty" yaml:"businessImpactScore,omitempty"`
	DominantClusterName  string     `json:"dominantClusterName,omitempty" yaml:"dominantClusterName,omitempty"`
	OverallSentiment     *int       `json:"overallSentiment,omitempty" yaml:"overallSentiment,omitempty"`

	SLABreachRiskPercentage *float64 `json:"slaBreachRiskPercentage,omitempty" yaml:"slaBreachRiskPercentage,omitempty"`
	EscalationRate          *float64 `json:"escalationRate,omitempty" yaml:"escalationRate,omitempty"`
	TotalThreads            *int     `json:"totalThreads,omitempty" yaml:"totalThreads,omitempty"`
	InternalPendingCount    *int     `json:"internalPendingCount,omitempty" yaml:"internalPendingCount,omitempty"`
	UrgentThreadsCount      *int     `json:"urgentThreadsCount,omitempty" yaml:"urgentThreadsCount,omitempty"`
	AvgResolutionTimeDays   *float64 `json:"avgResolutionTimeDays,omitempty" yaml:"avgResolutionTimeDays,omitempty"`
}

// ToThread converts the document into a domain thread. No validation happens
// here; malformed records are rejected by the aggregation pass.
func (d ThreadDocument) ToThread() Thread {
	t := Thread{
		ThreadID:             d.ThreadID,
		Owner:                d.Owner,
		AssignedTo:           d.AssignedTo,
		ResolutionStatus:     ResolutionStatus(d.ResolutionStatus),
		ActionPendingStatus:  ActionPendingStatus(d.ActionPendingStatus),
		ActionPendingFrom:    ActionParty(d.ActionPendingFrom),
		EscalationCount:      d.EscalationCount,
		FollowUpRequired:     d.FollowUpRequired,
		NextActionSuggestion: d.NextActionSuggestion,
		Priority:             Priority(d.Priority),
		BusinessImpactScore:  d.BusinessImpactScore,
		DominantClusterName:  d.DominantClusterName,
		OverallSentiment:     d.OverallSentiment,
	}
	if d.FirstMessageAt != nil {
		t.FirstMessageAt = d.FirstMessageAt.UTC()
	}
	if d.LastMessageAt != nil {
		t.LastMessageAt = d.LastMessageAt.UTC()
	}

	if d.SLABreachRiskPercentage != nil || d.EscalationRate != nil || d.TotalThreads != nil ||
		d.InternalPendingCount != nil || d.UrgentThreadsCount != nil || d.AvgResolutionTimeDays != nil {
		t.KPIs = &CarriedKPIs{
			SLABreachRiskPercentage: d.SLABreachRiskPercentage,
			EscalationRate:          d.EscalationRate,
			TotalThreads:            d.TotalThreads,
			InternalPendingCount:    d.InternalPendingCount,
			UrgentThreadsCount:      d.UrgentThreadsCount,
			AvgResolutionTimeDays:   d.AvgResolutionTimeDays,
		}
	}
	return t
}

// SnapshotDocument is a self-contained evaluation input: the threads, an
// optional KPI snapshot and an optional reference time.
type SnapshotDocument struct {
	AsOf    *time.Time       `json:"asOf,omitempty" yaml:"asOf,omitempty"`
	KPI     *KPISnapshot     `json:"kpi,omitempty" yaml:"kpi,omitempty"`
	Threads []ThreadDocument `json:"threads" yaml:"threads"`
}

// ThreadsFromDocuments converts every document, preserving order.
func ThreadsFromDocuments(docs []ThreadDocument) []Thread {
	threads := make([]Thread, len(docs))
	for i, doc := range docs {
		threads[i] = doc.ToThread()
	}
	return threads
}
