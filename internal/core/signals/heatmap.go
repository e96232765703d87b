package signals

import (
	"math"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
)

const (
	// RedistributionThresholdHours is the average age above which a cell
	// gets a redistribution suggestion.
	RedistributionThresholdHours = 72.0
	// RedistributionShare is the fraction of a cell's threads suggested for a move.
	RedistributionShare = 0.3
)

// AgeBandFor buckets an average age in hours.
func AgeBandFor(hours float64) domain.AgeBand {
	switch {
	case hours < 24:
		return domain.AgeBandHealthy
	case hours < 48:
		return domain.AgeBandAging
	case hours < 72:
		return domain.AgeBandStale
	case hours <= 7*24:
		return domain.AgeBandOverdue
	default:
		return domain.AgeBandCritical
	}
}

type cellAcc struct {
	count    int
	ageHours float64
}

// BuildHeatmap groups threads by (owner, stage) and reports how long each
// group has been waiting relative to asOf. Owners keep first-seen order,
// stages keep workflow order, and only populated pairs produce a cell.
func BuildHeatmap(threads []domain.Thread, asOf time.Time) domain.Heatmap {
	var owners []domain.OwnerKey
	cells := make(map[domain.OwnerKey]map[domain.Stage]*cellAcc)
	seenStages := make(map[domain.Stage]bool)

	for i := range threads {
		t := &threads[i]
		if t.Validate() != nil {
			continue
		}
		owner := t.OwnerKey()
		stage := Classify(t)

		byStage, ok := cells[owner]
		if !ok {
			byStage = make(map[domain.Stage]*cellAcc)
			cells[owner] = byStage
			owners = append(owners, owner)
		}
		acc, ok := byStage[stage]
		if !ok {
			acc = &cellAcc{}
			byStage[stage] = acc
		}
		acc.count++
		acc.ageHours += t.Age(asOf).Hours()
		seenStages[stage] = true
	}

	stages := make([]domain.Stage, 0, len(seenStages))
	for _, stage := range domain.WorkflowStages {
		if seenStages[stage] {
			stages = append(stages, stage)
		}
	}

	heatmap := domain.Heatmap{
		Cells:  []domain.HeatmapCell{},
		Owners: make([]string, 0, len(owners)),
		Stages: stages,
	}
	for _, owner := range owners {
		heatmap.Owners = append(heatmap.Owners, owner.String())
	}

	for _, owner := range owners {
		for _, stage := range stages {
			acc, ok := cells[owner][stage]
			if !ok {
				continue
			}
			avg := acc.ageHours / float64(acc.count)
			heatmap.Cells = append(heatmap.Cells, domain.HeatmapCell{
				Owner:       owner.String(),
				Stage:       stage,
				AvgAgeHours: avg,
				Count:       acc.count,
				Band:        AgeBandFor(avg),
				Suggestion:  suggestRedistribution(owner, owners, avg, acc.count),
			})
		}
	}
	return heatmap
}

// suggestRedistribution picks the first other named owner in the owner list.
// This is a placeholder heuristic; it does not consider the target's load.
func suggestRedistribution(owner domain.OwnerKey, owners []domain.OwnerKey, avgAgeHours float64, count int) *domain.Redistribution {
	if avgAgeHours <= RedistributionThresholdHours {
		return nil
	}
	moveCount := int(roundHalfUp(float64(count) * RedistributionShare))
	if moveCount < 1 {
		return nil
	}
	for _, candidate := range owners {
		if candidate.IsUnassigned() || candidate == owner {
			continue
		}
		return &domain.Redistribution{MoveCount: moveCount, ToOwner: candidate.String()}
	}
	return nil
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return roundHalfUp(x*p) / p
}
