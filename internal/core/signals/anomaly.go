package signals

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
)

// Alert thresholds. An alert fires above the warning threshold and is
// critical above the critical one.
const (
	IntentSpikeWarning      = 50
	IntentSpikeCritical     = 100
	FrictionWarningPct      = 30.0
	FrictionCriticalPct     = 40.0
	SilentThreadsWarning    = 20
	SilentThreadsCritical   = 50
	SLABreachWarningPct     = 10.0
	SLABreachCriticalPct    = 20.0
	EscalationSurgeWarning  = 10.0
	EscalationSurgeCritical = 15.0

	// NegativeSentimentCutoff marks a thread as a friction point.
	NegativeSentimentCutoff = 2.5
	// SilentAfter is how long an open thread may go without a message.
	SilentAfter = 3 * 24 * time.Hour
)

var resolveActions = map[domain.AlertType][]domain.ResolveAction{
	domain.AlertIntentSpike: {
		{ID: "assign-senior-agents", Label: "Assign senior agents to P1 threads"},
		{ID: "open-incident", Label: "Open an incident channel"},
		{ID: "notify-product", Label: "Notify the product team"},
	},
	domain.AlertFrictionDelta: {
		{ID: "review-negative-threads", Label: "Review negative-sentiment threads"},
		{ID: "schedule-callbacks", Label: "Schedule customer callbacks"},
	},
	domain.AlertSilentThreads: {
		{ID: "send-follow-ups", Label: "Send follow-ups to silent threads"},
		{ID: "reassign-silent", Label: "Reassign silent threads"},
		{ID: "close-stale", Label: "Close threads confirmed as stale"},
	},
	domain.AlertSLABreachRisk: {
		{ID: "prioritize-at-risk", Label: "Prioritize threads at risk of breach"},
		{ID: "add-capacity", Label: "Add temporary queue capacity"},
	},
	domain.AlertEscalationSurge: {
		{ID: "review-escalations", Label: "Review recent escalations"},
		{ID: "brief-team-leads", Label: "Brief team leads"},
		{ID: "update-playbooks", Label: "Update escalation playbooks"},
	},
}

// ResolveActionsFor returns a copy of the canned actions for an alert type.
func ResolveActionsFor(t domain.AlertType) []domain.ResolveAction {
	return append([]domain.ResolveAction(nil), resolveActions[t]...)
}

// AlertID is the deterministic identifier of an alert type. Re-running the
// detector on the same snapshot yields the same ids.
func AlertID(t domain.AlertType) string {
	return "alert-" + strings.ReplaceAll(string(t), "_", "-")
}

// DetectAnomalies evaluates every alert rule independently against the KPI
// snapshot and the threads. Critical alerts sort ahead of warnings; within a
// severity, rules keep their evaluation order.
func DetectAnomalies(kpi domain.KPISnapshot, threads []domain.Thread, asOf time.Time) []domain.Alert {
	var (
		total    int
		urgent   int
		friction int
		silent   int
	)
	for i := range threads {
		t := &threads[i]
		if t.Validate() != nil {
			continue
		}
		total++
		if t.Priority == domain.PriorityP1 {
			urgent++
		}
		if t.OverallSentiment != nil && float64(*t.OverallSentiment) < NegativeSentimentCutoff {
			friction++
		}
		if !t.IsClosed() && t.Age(asOf) > SilentAfter {
			silent++
		}
	}

	alerts := make([]domain.Alert, 0, 5)

	if urgent > IntentSpikeWarning {
		alerts = append(alerts, newAlert(domain.AlertIntentSpike,
			severityFor(float64(urgent), IntentSpikeCritical),
			"Urgent intent spike",
			fmt.Sprintf("%d threads are marked P1.", urgent),
			urgent, nil))
	}

	if total > 0 {
		pct := 100 * float64(friction) / float64(total)
		if pct > FrictionWarningPct {
			alerts = append(alerts, newAlert(domain.AlertFrictionDelta,
				severityFor(pct, FrictionCriticalPct),
				"Customer friction rising",
				fmt.Sprintf("%.1f%% of threads have a sentiment score below %.1f.", pct, NegativeSentimentCutoff),
				friction, &pct))
		}
	}

	if silent > SilentThreadsWarning {
		alerts = append(alerts, newAlert(domain.AlertSilentThreads,
			severityFor(float64(silent), SilentThreadsCritical),
			"Silent threads",
			fmt.Sprintf("%d open threads have had no message for more than 3 days.", silent),
			silent, nil))
	}

	if pct := kpi.SLABreachRiskPercentage; pct > SLABreachWarningPct {
		count := int(roundHalfUp(pct / 100 * float64(kpi.TotalThreads)))
		alerts = append(alerts, newAlert(domain.AlertSLABreachRisk,
			severityFor(pct, SLABreachCriticalPct),
			"SLA breach risk",
			fmt.Sprintf("%.1f%% of threads are at risk of breaching SLA.", pct),
			count, &pct))
	}

	if rate := kpi.EscalationRate; rate > EscalationSurgeWarning {
		alerts = append(alerts, newAlert(domain.AlertEscalationSurge,
			severityFor(rate, EscalationSurgeCritical),
			"Escalation surge",
			fmt.Sprintf("Escalation rate is %.1f%%.", rate),
			kpi.EscalationCount, &rate))
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

func severityFor(value, critical float64) domain.Severity {
	if value > critical {
		return domain.SeverityCritical
	}
	return domain.SeverityWarning
}

func newAlert(t domain.AlertType, sev domain.Severity, title, description string, count int, value *float64) domain.Alert {
	return domain.Alert{
		ID:             AlertID(t),
		Type:           t,
		Title:          title,
		Description:    description,
		Severity:       sev,
		Count:          count,
		Value:          value,
		ResolveActions: ResolveActionsFor(t),
	}
}
