package signals

import (
	"math"

	"github.com/lorrc/support-signals/internal/core/domain"
)

const (
	// DailyCapacity is the assumed number of threads one owner clears per day.
	DailyCapacity = 10
	// SLATargetPerWeek is the weekly thread capacity of one owner.
	SLATargetPerWeek = DailyCapacity * 7
	// DefaultAvgResolutionDays applies to owners with no closed threads.
	DefaultAvgResolutionDays = 2.3

	minQueueHealth = 5.0
	maxQueueHealth = 100.0
)

type ownerAcc struct {
	key           domain.OwnerKey
	open          int
	resolvedDays  float64
	resolvedCount int
}

// ScoreQueue rates how well open work fits owner capacity and how evenly it
// is spread. The score is always within [5, 100].
func ScoreQueue(threads []domain.Thread) domain.QueueHealth {
	var order []*ownerAcc
	byOwner := make(map[domain.OwnerKey]*ownerAcc)

	for i := range threads {
		t := &threads[i]
		if t.Validate() != nil {
			continue
		}
		key := t.OwnerKey()
		acc, ok := byOwner[key]
		if !ok {
			acc = &ownerAcc{key: key}
			byOwner[key] = acc
			order = append(order, acc)
		}
		if !t.IsClosed() {
			acc.open++
			continue
		}
		if d, ok := t.ResolutionDuration(); ok {
			acc.resolvedDays += d.Hours() / 24
			acc.resolvedCount++
		}
	}

	result := domain.QueueHealth{OwnerStatuses: make([]domain.OwnerHealth, 0, len(order))}
	var (
		totalThroughput float64
		critical        int
		warning         int
		maxOpen         int
	)
	for _, acc := range order {
		avgDays := DefaultAvgResolutionDays
		if acc.resolvedCount > 0 {
			avgDays = acc.resolvedDays / float64(acc.resolvedCount)
		}
		var throughput float64
		if avgDays > 0 {
			throughput = 7 / avgDays
		}

		status := ownerStatus(float64(acc.open) / SLATargetPerWeek)
		switch status {
		case domain.OwnerCritical:
			critical++
		case domain.OwnerWarning:
			warning++
		}

		result.OwnerStatuses = append(result.OwnerStatuses, domain.OwnerHealth{
			Owner:       acc.key.String(),
			OpenThreads: acc.open,
			Throughput:  roundTo(throughput, 1),
			SLATarget:   SLATargetPerWeek,
			Status:      status,
		})
		result.TotalOpen += acc.open
		totalThroughput += throughput
		maxOpen = max(maxOpen, acc.open)
	}
	result.TotalThroughput = roundTo(totalThroughput, 1)

	owners := len(order)
	totalTarget := float64(owners * SLATargetPerWeek)
	var utilization float64
	if totalTarget > 0 {
		utilization = float64(result.TotalOpen) / totalTarget
	}

	score := capacityHealth(utilization) -
		statusPenalty(critical, warning, owners) -
		loadBalancePenalty(maxOpen, result.TotalOpen, owners)
	result.QueueHealth = roundTo(math.Min(maxQueueHealth, math.Max(minQueueHealth, score)), 1)
	return result
}

func ownerStatus(ratio float64) domain.OwnerStatus {
	switch {
	case ratio > 1.5:
		return domain.OwnerCritical
	case ratio > 1.0:
		return domain.OwnerWarning
	default:
		return domain.OwnerHealthy
	}
}

func capacityHealth(utilization float64) float64 {
	if utilization <= 1.0 {
		return 100 - utilization*50
	}
	return math.Max(10, 50-(utilization-1.0)*40)
}

// statusPenalty applies the single highest tier that matches.
func statusPenalty(critical, warning, owners int) float64 {
	if owners == 0 {
		return 0
	}
	criticalRatio := float64(critical) / float64(owners)
	warningRatio := float64(warning) / float64(owners)
	switch {
	case criticalRatio > 0.7:
		return 40
	case criticalRatio > 0.5:
		return 30
	case criticalRatio > 0.3:
		return 20
	case warningRatio > 0.5:
		return 10
	default:
		return 0
	}
}

func loadBalancePenalty(maxOpen, totalOpen, owners int) float64 {
	if owners <= 1 {
		return 0
	}
	avgOpen := float64(totalOpen) / float64(owners)
	if avgOpen == 0 {
		return 0
	}
	variance := float64(maxOpen) / avgOpen
	switch {
	case variance > 2.5:
		return 15
	case variance > 2.0:
		return 10
	default:
		return 0
	}
}
