package signals

import (
	"math"
	"sort"

	"github.com/lorrc/support-signals/internal/core/domain"
)

// MaxRiskPoints caps the number of topics on the radar.
const MaxRiskPoints = 8

type topicAcc struct {
	key         domain.TopicKey
	value       float64
	escalations int
	threads     int
}

// ComputeRiskRadar weighs each topic's business impact by priority and pairs
// it with how often the topic escalates. Points are sorted by radius,
// largest first, and the top topic has radius 100 whenever any value is at risk.
func ComputeRiskRadar(threads []domain.Thread) []domain.RiskPoint {
	var order []*topicAcc
	byTopic := make(map[domain.TopicKey]*topicAcc)

	for i := range threads {
		t := &threads[i]
		if t.Validate() != nil {
			continue
		}
		key := t.TopicKey()
		acc, ok := byTopic[key]
		if !ok {
			acc = &topicAcc{key: key}
			byTopic[key] = acc
			order = append(order, acc)
		}
		acc.value += t.ImpactScore() * t.Priority.Weight() / 100
		acc.escalations += t.EscalationCount
		acc.threads++
	}

	var maxValue float64
	for _, acc := range order {
		maxValue = math.Max(maxValue, acc.value)
	}

	points := make([]domain.RiskPoint, 0, len(order))
	for _, acc := range order {
		var probability float64
		if acc.threads > 0 {
			probability = math.Min(100, 100*float64(acc.escalations)/float64(acc.threads))
		}
		var radius float64
		if maxValue > 0 {
			radius = math.Min(100, 100*acc.value/maxValue)
		}
		points = append(points, domain.RiskPoint{
			Topic:                 acc.key.String(),
			ValueAtRisk:           acc.value,
			EscalationProbability: probability,
			Radius:                radius,
			ThreadCount:           acc.threads,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Radius > points[j].Radius
	})
	if len(points) > MaxRiskPoints {
		points = points[:MaxRiskPoints]
	}
	return points
}
