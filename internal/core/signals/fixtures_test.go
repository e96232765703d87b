package signals_test

import (
	"fmt"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
)

var asOf = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// thread returns a valid open/pending thread whose last message arrived
// `age` before asOf.
func thread(id string, age time.Duration) domain.Thread {
	last := asOf.Add(-age)
	return domain.Thread{
		ThreadID:            id,
		ResolutionStatus:    domain.ResolutionOpen,
		ActionPendingStatus: domain.ActionPending,
		FirstMessageAt:      last.Add(-time.Hour),
		LastMessageAt:       last,
		Priority:            domain.PriorityP3,
	}
}

func owned(owner string, t domain.Thread) domain.Thread {
	t.Owner = owner
	return t
}

func closedThread(id, owner string, duration time.Duration) domain.Thread {
	t := thread(id, time.Hour)
	t.Owner = owner
	t.ResolutionStatus = domain.ResolutionClosed
	t.ActionPendingStatus = domain.ActionCompleted
	t.FirstMessageAt = t.LastMessageAt.Add(-duration)
	return t
}

func openThreads(owner string, n int) []domain.Thread {
	out := make([]domain.Thread, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, owned(owner, thread(fmt.Sprintf("%s-%d", owner, i), time.Hour)))
	}
	return out
}

func malformed() domain.Thread {
	return thread("", time.Hour)
}

func ptr[T any](v T) *T { return &v }
