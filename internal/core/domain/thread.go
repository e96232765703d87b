package domain

import (
	"time"

	apperrors "github.com/lorrc/support-signals/internal/core/errors"
)

// Sentinel labels used when a grouping key has no source value.
const (
	UnassignedOwner = "Unassigned"
	UnknownTopic    = "Unknown"
)

// DefaultBusinessImpactScore applies when a thread carries no impact score.
const DefaultBusinessImpactScore = 50.0

// ResolutionStatus is the customer-facing resolution state of a thread.
type ResolutionStatus string

const (
	ResolutionOpen       ResolutionStatus = "open"
	ResolutionInProgress ResolutionStatus = "in_progress"
	ResolutionEscalated  ResolutionStatus = "escalated"
	ResolutionClosed     ResolutionStatus = "closed"
)

// IsValid checks if the resolution status is one of the known values.
func (s ResolutionStatus) IsValid() bool {
	switch s {
	case ResolutionOpen, ResolutionInProgress, ResolutionEscalated, ResolutionClosed:
		return true
	default:
		return false
	}
}

// ActionPendingStatus tracks the next action owed on a thread.
type ActionPendingStatus string

const (
	ActionPending    ActionPendingStatus = "pending"
	ActionInProgress ActionPendingStatus = "in_progress"
	ActionCompleted  ActionPendingStatus = "completed"
)

// ActionParty is the side that owes the next action. The zero value means absent.
type ActionParty string

const (
	PartyNone     ActionParty = ""
	PartyCompany  ActionParty = "company"
	PartyCustomer ActionParty = "customer"
)

// Priority is the P1 (most urgent) to P5 scale.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
	PriorityP5 Priority = "P5"
)

// Weight returns the risk weight of the priority; unrecognized values weigh 50.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityP1:
		return 100
	case PriorityP2:
		return 75
	case PriorityP3:
		return 50
	case PriorityP4:
		return 25
	case PriorityP5:
		return 10
	default:
		return 50
	}
}

// OwnerKey is the derived grouping key for a thread's owner.
// Unassigned threads share one explicit variant instead of an empty name.
type OwnerKey struct {
	name       string
	unassigned bool
}

// NamedOwner returns the key for a named owner.
func NamedOwner(name string) OwnerKey {
	if name == "" {
		return Unassigned()
	}
	return OwnerKey{name: name}
}

// Unassigned returns the sentinel owner key.
func Unassigned() OwnerKey {
	return OwnerKey{unassigned: true}
}

func (o OwnerKey) IsUnassigned() bool {
	return o.unassigned
}

// String returns the display label of the owner.
func (o OwnerKey) String() string {
	if o.unassigned {
		return UnassignedOwner
	}
	return o.name
}

// TopicKey is the derived grouping key for a thread's dominant cluster.
type TopicKey struct {
	name    string
	unknown bool
}

// NamedTopic returns the key for a named topic.
func NamedTopic(name string) TopicKey {
	if name == "" {
		return UnknownTopicKey()
	}
	return TopicKey{name: name}
}

// UnknownTopicKey returns the sentinel topic key.
func UnknownTopicKey() TopicKey {
	return TopicKey{unknown: true}
}

func (t TopicKey) IsUnknown() bool {
	return t.unknown
}

func (t TopicKey) String() string {
	if t.unknown {
		return UnknownTopic
	}
	return t.name
}

// CarriedKPIs are optional queue-level aggregates that some thread sources
// attach to each record. Nil fields were not supplied.
type CarriedKPIs struct {
	SLABreachRiskPercentage *float64
	EscalationRate          *float64
	TotalThreads            *int
	InternalPendingCount    *int
	UrgentThreadsCount      *int
	AvgResolutionTimeDays   *float64
}

// Thread is one customer-support conversation. It is read-only to the engine.
type Thread struct {
	ThreadID             string
	Owner                string
	AssignedTo           string
	ResolutionStatus     ResolutionStatus
	ActionPendingStatus  ActionPendingStatus
	ActionPendingFrom    ActionParty
	EscalationCount      int
	FollowUpRequired     bool
	NextActionSuggestion *string
	FirstMessageAt       time.Time
	LastMessageAt        time.Time
	Priority             Priority
	BusinessImpactScore  *float64
	DominantClusterName  string
	OverallSentiment     *int
	KPIs                 *CarriedKPIs
}

// OwnerKey derives the owner grouping key: owner, then assignedTo, then Unassigned.
func (t *Thread) OwnerKey() OwnerKey {
	if t.Owner != "" {
		return NamedOwner(t.Owner)
	}
	return NamedOwner(t.AssignedTo)
}

// TopicKey derives the topic grouping key from the dominant cluster name.
func (t *Thread) TopicKey() TopicKey {
	return NamedTopic(t.DominantClusterName)
}

// ImpactScore returns the business impact score or the default of 50.
func (t *Thread) ImpactScore() float64 {
	if t.BusinessImpactScore == nil {
		return DefaultBusinessImpactScore
	}
	return *t.BusinessImpactScore
}

// HasNextAction reports whether a next-action suggestion is present.
func (t *Thread) HasNextAction() bool {
	return t.NextActionSuggestion != nil && *t.NextActionSuggestion != ""
}

// IsClosed reports whether the thread is resolved and closed.
func (t *Thread) IsClosed() bool {
	return t.ResolutionStatus == ResolutionClosed
}

// Age returns the time elapsed between the last message and asOf.
func (t *Thread) Age(asOf time.Time) time.Duration {
	return asOf.Sub(t.LastMessageAt)
}

// ResolutionDuration returns last-minus-first message time. ok is false when
// the first message timestamp is unknown.
func (t *Thread) ResolutionDuration() (time.Duration, bool) {
	if t.FirstMessageAt.IsZero() {
		return 0, false
	}
	return t.LastMessageAt.Sub(t.FirstMessageAt), true
}

// Validate checks the fields every aggregation pass depends on.
// It returns a *MalformedRecordError describing the first problem found.
func (t *Thread) Validate() error {
	if t.ThreadID == "" {
		return apperrors.NewMalformedRecordError(t.ThreadID, "threadId", apperrors.ErrThreadIDRequired)
	}
	if t.ResolutionStatus == "" {
		return apperrors.NewMalformedRecordError(t.ThreadID, "resolutionStatus", apperrors.ErrResolutionStatusRequired)
	}
	if !t.ResolutionStatus.IsValid() {
		return apperrors.NewMalformedRecordError(t.ThreadID, "resolutionStatus", apperrors.ErrInvalidResolutionStatus)
	}
	if t.LastMessageAt.IsZero() {
		return apperrors.NewMalformedRecordError(t.ThreadID, "lastMessageAt", apperrors.ErrLastMessageAtRequired)
	}
	if !t.FirstMessageAt.IsZero() && t.LastMessageAt.Before(t.FirstMessageAt) {
		return apperrors.NewMalformedRecordError(t.ThreadID, "lastMessageAt", apperrors.ErrMessageTimestampsReversed)
	}
	if t.EscalationCount < 0 {
		return apperrors.NewMalformedRecordError(t.ThreadID, "escalationCount", apperrors.ErrNegativeEscalationCount)
	}
	return nil
}

// Rejected pairs a skipped record with the reason it was skipped.
type Rejected struct {
	Index int
	Err   error
}

// PartitionThreads splits a snapshot into usable records and rejected ones.
// The input slice is not modified.
func PartitionThreads(threads []Thread) ([]Thread, []Rejected) {
	valid := make([]Thread, 0, len(threads))
	var rejected []Rejected
	for i := range threads {
		if err := threads[i].Validate(); err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		valid = append(valid, threads[i])
	}
	return valid, rejected
}
