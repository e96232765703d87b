// Package signals turns a snapshot of support threads into operational
// signals: workflow stages, the bottleneck heatmap, queue health, the risk
// radar and anomaly alerts. Every function here is pure and safe for
// concurrent use; records that fail validation are skipped.
package signals

import (
	"unicode/utf16"

	"github.com/lorrc/support-signals/internal/core/domain"
)

var earlyStages = [...]domain.Stage{
	domain.StageReceive,
	domain.StageAuthenticate,
	domain.StageCategorize,
}

// Classify maps a thread to exactly one workflow stage. The first matching
// rule wins.
func Classify(t *domain.Thread) domain.Stage {
	status := t.ResolutionStatus
	action := t.ActionPendingStatus

	switch {
	case status == domain.ResolutionClosed:
		if action == domain.ActionCompleted && (t.FollowUpRequired || t.HasNextAction()) {
			return domain.StageReport
		}
		return domain.StageClose
	case status == domain.ResolutionEscalated || t.EscalationCount > 0:
		return domain.StageEscalation
	case action == domain.ActionCompleted:
		return domain.StageResolved
	case status == domain.ResolutionInProgress && action == domain.ActionInProgress:
		return domain.StageResolution
	case status == domain.ResolutionInProgress || action == domain.ActionInProgress:
		return domain.StageUpdate
	case status == domain.ResolutionOpen && action == domain.ActionPending:
		if t.ActionPendingFrom == domain.PartyNone || t.ActionPendingFrom == domain.PartyCompany {
			return earlyStages[stableHash(t.ThreadID)%len(earlyStages)]
		}
		return domain.StageUpdate
	default:
		return domain.StageReceive
	}
}

// stableHash sums the UTF-16 code units of s. Unlike map or runtime hashes it
// is identical across processes and platforms.
func stableHash(s string) int {
	sum := 0
	for _, unit := range utf16.Encode([]rune(s)) {
		sum += int(unit)
	}
	return sum
}

// StageDistribution counts valid threads per stage. Every stage is listed in
// workflow order, including stages with no threads.
func StageDistribution(threads []domain.Thread) []domain.StageCount {
	counts := make(map[domain.Stage]int, len(domain.WorkflowStages))
	for i := range threads {
		t := &threads[i]
		if t.Validate() != nil {
			continue
		}
		counts[Classify(t)]++
	}

	out := make([]domain.StageCount, 0, len(domain.WorkflowStages))
	for _, stage := range domain.WorkflowStages {
		out = append(out, domain.StageCount{Stage: stage, Count: counts[stage]})
	}
	return out
}
