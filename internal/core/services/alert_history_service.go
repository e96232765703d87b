package services

import (
	"context"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
)

const (
	defaultAlertHistoryLimit = 50
	maxAlertHistoryLimit     = 500
)

// AlertHistoryService handles alert history queries.
type AlertHistoryService struct {
	eventRepo ports.AlertEventRepository
}

var _ ports.AlertHistoryService = (*AlertHistoryService)(nil)

// NewAlertHistoryService creates a new alert history service.
func NewAlertHistoryService(eventRepo ports.AlertEventRepository) ports.AlertHistoryService {
	return &AlertHistoryService{eventRepo: eventRepo}
}

// ListAlertEvents retrieves alert events after the given cursor.
func (s *AlertHistoryService) ListAlertEvents(ctx context.Context, params ports.ListAlertEventsParams) ([]*domain.AlertEvent, error) {
	limit := params.Limit
	switch {
	case limit <= 0:
		limit = defaultAlertHistoryLimit
	case limit > maxAlertHistoryLimit:
		limit = maxAlertHistoryLimit
	}

	afterID := params.AfterID
	if afterID < 0 {
		afterID = 0
	}

	return s.eventRepo.List(ctx, afterID, limit)
}
