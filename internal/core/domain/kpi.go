package domain

import "time"

// DeriveKPISnapshot builds the aggregate KPI snapshot for a set of threads.
// Values carried on the records win (first record carrying a field decides);
// anything not carried is computed from the threads themselves. Threads are
// expected to be valid; callers partition malformed records out first.
func DeriveKPISnapshot(threads []Thread) KPISnapshot {
	var (
		snap           KPISnapshot
		carried        carriedValues
		escalated      int
		internal       int
		urgent         int
		impactSum      float64
		sentimentSum   float64
		sentimentCount int
		resolutionSum  time.Duration
		resolvedCount  int
	)

	for i := range threads {
		t := &threads[i]
		carried.absorb(t.KPIs)

		snap.EscalationCount += t.EscalationCount
		if t.EscalationCount > 0 || t.ResolutionStatus == ResolutionEscalated {
			escalated++
		}
		if t.ActionPendingStatus != ActionCompleted && t.ActionPendingFrom == PartyCompany {
			internal++
		}
		if t.Priority == PriorityP1 {
			urgent++
		}
		impactSum += t.ImpactScore()
		if t.OverallSentiment != nil {
			sentimentSum += float64(*t.OverallSentiment)
			sentimentCount++
		}
		if t.IsClosed() {
			if d, ok := t.ResolutionDuration(); ok {
				resolutionSum += d
				resolvedCount++
			}
		}
	}

	n := len(threads)
	snap.TotalThreads = n
	if n > 0 {
		snap.EscalationRate = 100 * float64(escalated) / float64(n)
		snap.BusinessImpactScore = impactSum / float64(n)
	}
	snap.InternalPendingCount = internal
	snap.UrgentThreadsCount = urgent
	if sentimentCount > 0 {
		snap.CustomerSentimentIndex = sentimentSum / float64(sentimentCount)
	}
	if resolvedCount > 0 {
		snap.AvgResolutionTimeDays = days(resolutionSum) / float64(resolvedCount)
	}

	carried.apply(&snap)
	return snap
}

type carriedValues struct {
	slaBreachRisk  *float64
	escalationRate *float64
	totalThreads   *int
	internal       *int
	urgent         *int
	avgResolution  *float64
}

func (c *carriedValues) absorb(k *CarriedKPIs) {
	if k == nil {
		return
	}
	if c.slaBreachRisk == nil {
		c.slaBreachRisk = k.SLABreachRiskPercentage
	}
	if c.escalationRate == nil {
		c.escalationRate = k.EscalationRate
	}
	if c.totalThreads == nil {
		c.totalThreads = k.TotalThreads
	}
	if c.internal == nil {
		c.internal = k.InternalPendingCount
	}
	if c.urgent == nil {
		c.urgent = k.UrgentThreadsCount
	}
	if c.avgResolution == nil {
		c.avgResolution = k.AvgResolutionTimeDays
	}
}

func (c *carriedValues) apply(snap *KPISnapshot) {
	if c.slaBreachRisk != nil {
		snap.SLABreachRiskPercentage = *c.slaBreachRisk
	}
	if c.escalationRate != nil {
		snap.EscalationRate = *c.escalationRate
	}
	if c.totalThreads != nil {
		snap.TotalThreads = *c.totalThreads
	}
	if c.internal != nil {
		snap.InternalPendingCount = *c.internal
	}
	if c.urgent != nil {
		snap.UrgentThreadsCount = *c.urgent
	}
	if c.avgResolution != nil {
		snap.AvgResolutionTimeDays = *c.avgResolution
	}
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
