package signals_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priorityThreads(n int, priority domain.Priority) []domain.Thread {
	out := make([]domain.Thread, 0, n)
	for i := 0; i < n; i++ {
		th := thread(fmt.Sprintf("%s-%d", priority, i), time.Hour)
		th.Priority = priority
		out = append(out, th)
	}
	return out
}

func sentimentThreads(n, sentiment int) []domain.Thread {
	out := make([]domain.Thread, 0, n)
	for i := 0; i < n; i++ {
		th := thread(fmt.Sprintf("S%d-%d", sentiment, i), time.Hour)
		th.OverallSentiment = ptr(sentiment)
		out = append(out, th)
	}
	return out
}

func silentThreads(n int, status domain.ResolutionStatus) []domain.Thread {
	out := make([]domain.Thread, 0, n)
	for i := 0; i < n; i++ {
		th := thread(fmt.Sprintf("silent-%s-%d", status, i), 4*24*time.Hour)
		th.ResolutionStatus = status
		out = append(out, th)
	}
	return out
}

func TestDetectAnomalies_IntentSpikeWarning(t *testing.T) {
	threads := append(priorityThreads(60, domain.PriorityP1), priorityThreads(40, domain.PriorityP3)...)

	alerts := signals.DetectAnomalies(domain.KPISnapshot{}, threads, asOf)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, domain.AlertIntentSpike, alert.Type)
	assert.Equal(t, domain.SeverityWarning, alert.Severity)
	assert.Equal(t, 60, alert.Count)
	assert.Equal(t, "alert-intent-spike", alert.ID)
	assert.Nil(t, alert.Value)
}

func TestDetectAnomalies_IntentSpikeCritical(t *testing.T) {
	alerts := signals.DetectAnomalies(domain.KPISnapshot{}, priorityThreads(101, domain.PriorityP1), asOf)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
}

func TestDetectAnomalies_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		kpi          domain.KPISnapshot
		threads      []domain.Thread
		wantType     domain.AlertType
		wantSeverity domain.Severity
		wantCount    int
		wantValue    *float64
	}{
		{
			name:    "exactly 50 P1 threads do not fire",
			threads: priorityThreads(50, domain.PriorityP1),
		},
		{
			name:         "friction at 40 percent is a warning",
			threads:      append(sentimentThreads(4, 1), sentimentThreads(6, 4)...),
			wantType:     domain.AlertFrictionDelta,
			wantSeverity: domain.SeverityWarning,
			wantCount:    4,
			wantValue:    ptr(40.0),
		},
		{
			name:         "friction above 40 percent is critical",
			threads:      append(sentimentThreads(5, 2), sentimentThreads(5, 3)...),
			wantType:     domain.AlertFrictionDelta,
			wantSeverity: domain.SeverityCritical,
			wantCount:    5,
			wantValue:    ptr(50.0),
		},
		{
			name:    "friction at 30 percent does not fire",
			threads: append(sentimentThreads(3, 1), sentimentThreads(7, 5)...),
		},
		{
			name:         "silent open threads",
			threads:      append(silentThreads(25, domain.ResolutionOpen), silentThreads(40, domain.ResolutionClosed)...),
			wantType:     domain.AlertSilentThreads,
			wantSeverity: domain.SeverityWarning,
			wantCount:    25,
		},
		{
			name:         "many silent threads are critical",
			threads:      silentThreads(51, domain.ResolutionInProgress),
			wantType:     domain.AlertSilentThreads,
			wantSeverity: domain.SeverityCritical,
			wantCount:    51,
		},
		{
			name:         "SLA breach risk counts affected threads",
			kpi:          domain.KPISnapshot{SLABreachRiskPercentage: 25, TotalThreads: 200},
			wantType:     domain.AlertSLABreachRisk,
			wantSeverity: domain.SeverityCritical,
			wantCount:    50,
			wantValue:    ptr(25.0),
		},
		{
			name:         "SLA breach count rounds half up",
			kpi:          domain.KPISnapshot{SLABreachRiskPercentage: 12.5, TotalThreads: 10},
			wantType:     domain.AlertSLABreachRisk,
			wantSeverity: domain.SeverityWarning,
			wantCount:    1,
			wantValue:    ptr(12.5),
		},
		{
			name: "SLA breach at 10 percent does not fire",
			kpi:  domain.KPISnapshot{SLABreachRiskPercentage: 10, TotalThreads: 200},
		},
		{
			name:         "escalation surge",
			kpi:          domain.KPISnapshot{EscalationRate: 12, EscalationCount: 7},
			wantType:     domain.AlertEscalationSurge,
			wantSeverity: domain.SeverityWarning,
			wantCount:    7,
			wantValue:    ptr(12.0),
		},
		{
			name:         "escalation surge critical",
			kpi:          domain.KPISnapshot{EscalationRate: 15.5},
			wantType:     domain.AlertEscalationSurge,
			wantSeverity: domain.SeverityCritical,
			wantValue:    ptr(15.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := signals.DetectAnomalies(tt.kpi, tt.threads, asOf)
			if tt.wantType == "" {
				assert.Empty(t, alerts)
				return
			}

			require.Len(t, alerts, 1)
			alert := alerts[0]
			assert.Equal(t, tt.wantType, alert.Type)
			assert.Equal(t, tt.wantSeverity, alert.Severity)
			assert.Equal(t, tt.wantCount, alert.Count)
			if tt.wantValue == nil {
				assert.Nil(t, alert.Value)
			} else {
				require.NotNil(t, alert.Value)
				assert.InDelta(t, *tt.wantValue, *alert.Value, 1e-9)
			}
			assert.NotEmpty(t, alert.Title)
			assert.NotEmpty(t, alert.Description)
			assert.GreaterOrEqual(t, len(alert.ResolveActions), 2)
			assert.LessOrEqual(t, len(alert.ResolveActions), 3)
		})
	}
}

func TestDetectAnomalies_FrictionDescriptionStatesTheCutoff(t *testing.T) {
	threads := append(sentimentThreads(5, 2), sentimentThreads(5, 3)...)

	alerts := signals.DetectAnomalies(domain.KPISnapshot{}, threads, asOf)

	require.Len(t, alerts, 1)
	assert.Equal(t, "50.0% of threads have a sentiment score below 2.5.", alerts[0].Description)
}

func TestDetectAnomalies_RulesStackAndSortBySeverity(t *testing.T) {
	kpi := domain.KPISnapshot{
		TotalThreads:            100,
		SLABreachRiskPercentage: 25,
		EscalationRate:          12,
		EscalationCount:         9,
	}
	threads := priorityThreads(60, domain.PriorityP1)

	alerts := signals.DetectAnomalies(kpi, threads, asOf)

	require.Len(t, alerts, 3)
	assert.Equal(t, domain.AlertSLABreachRisk, alerts[0].Type)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, domain.AlertIntentSpike, alerts[1].Type)
	assert.Equal(t, domain.AlertEscalationSurge, alerts[2].Type)
}

func TestDetectAnomalies_Idempotent(t *testing.T) {
	kpi := domain.KPISnapshot{TotalThreads: 80, SLABreachRiskPercentage: 18, EscalationRate: 20}
	threads := append(priorityThreads(55, domain.PriorityP1), silentThreads(22, domain.ResolutionOpen)...)

	first := signals.DetectAnomalies(kpi, threads, asOf)
	second := signals.DetectAnomalies(kpi, threads, asOf)

	assert.Equal(t, first, second)
}

func TestDetectAnomalies_SkipsMalformed(t *testing.T) {
	threads := priorityThreads(51, domain.PriorityP1)
	threads[0].ThreadID = ""

	alerts := signals.DetectAnomalies(domain.KPISnapshot{}, threads, asOf)
	assert.Empty(t, alerts)
}

func TestResolveActionsFor_ReturnsCopy(t *testing.T) {
	actions := signals.ResolveActionsFor(domain.AlertIntentSpike)
	require.NotEmpty(t, actions)
	actions[0].Label = "changed"

	assert.NotEqual(t, "changed", signals.ResolveActionsFor(domain.AlertIntentSpike)[0].Label)
}
