package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/repository"
	"supplylink/pkg/pagination"
)

const activityWindow = 7 * 24 * time.Hour

// --- DTOs ---

type AuditLogResponse struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id,omitempty"`
	User       *PartyResponse         `json:"user,omitempty"`
	Action     string                 `json:"action"`
	EntityID   string                 `json:"entity_id"`
	EntityName string                 `json:"entity_name,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

// --- Interface ---

type AdminService interface {
	Metrics(ctx context.Context) (model.PlatformMetrics, error)
	// Logs is the platform activity feed: every notification with its recipient.
	Logs(ctx context.Context, p pagination.Params) ([]NotificationResponse, int64, error)
	AuditLogs(ctx context.Context, action string, p pagination.Params) ([]AuditLogResponse, int64, error)
}

type adminService struct {
	metricsRepo      repository.MetricsRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditRepository
	now              func() time.Time
}

func NewAdminService(
	metricsRepo repository.MetricsRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditRepository,
) AdminService {
	return &adminService{
		metricsRepo:      metricsRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		now:              time.Now,
	}
}

// --- Implementation ---

func (s *adminService) Metrics(ctx context.Context) (model.PlatformMetrics, error) {
	m, err := s.metricsRepo.Collect(ctx, s.now().UTC().Add(-activityWindow))
	if err != nil {
		return model.PlatformMetrics{}, err
	}
	if m.OrdersByStatus == nil {
		m.OrdersByStatus = []model.StatusCount{}
	}
	if m.UsersByRole == nil {
		m.UsersByRole = []model.RoleCount{}
	}
	return m, nil
}

func (s *adminService) Logs(ctx context.Context, p pagination.Params) ([]NotificationResponse, int64, error) {
	items, total, err := s.notificationRepo.ListAll(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	result := make([]NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, toNotificationResponse(&items[i]))
	}
	return result, total, nil
}

func (s *adminService) AuditLogs(ctx context.Context, action string, p pagination.Params) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, action, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	result := make([]AuditLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		res := AuditLogResponse{
			ID:         l.ID.String(),
			User:       toParty(l.User),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			CreatedAt:  formatTime(l.CreatedAt),
		}
		if l.UserID != nil {
			res.UserID = l.UserID.String()
		}
		// Details is best effort; a malformed payload just leaves the field empty.
		_ = json.Unmarshal([]byte(l.Details), &res.Details)
		result = append(result, res)
	}
	return result, total, nil
}
