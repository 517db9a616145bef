package service

import (
	"context"
	"fmt"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
)

// --- DTOs ---

type NotificationResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	User      *PartyResponse `json:"user,omitempty"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Read      bool           `json:"read"`
	CreatedAt string         `json:"created_at"`
}

type MarkAllReadResponse struct {
	MarkedAsRead int64 `json:"marked_as_read"`
}

// --- Interface ---

type NotificationService interface {
	// List returns a page of the caller's notifications plus their total unread count.
	List(ctx context.Context, caller Caller, p pagination.Params) ([]NotificationResponse, int64, int64, error)
	MarkAsRead(ctx context.Context, id string, caller Caller) (NotificationResponse, error)
	MarkAllAsRead(ctx context.Context, caller Caller) (MarkAllReadResponse, error)
	// Deliver persists a notification job. Registered as the worker's notification handler.
	Deliver(ctx context.Context, job queue.Job) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// --- Implementation ---

func (s *notificationService) List(ctx context.Context, caller Caller, p pagination.Params) ([]NotificationResponse, int64, int64, error) {
	items, total, err := s.repo.ListByUser(ctx, caller.ID, p)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, caller.ID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	result := make([]NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, toNotificationResponse(&items[i]))
	}
	return result, total, unread, nil
}

// MarkAsRead reports another user's notification as missing rather than forbidden.
func (s *notificationService) MarkAsRead(ctx context.Context, id string, caller Caller) (NotificationResponse, error) {
	notificationID, err := parseID(id, "notification")
	if err != nil {
		return NotificationResponse{}, err
	}
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return NotificationResponse{}, notFound(err, "notification not found")
	}
	if n.UserID != caller.ID {
		return NotificationResponse{}, apperror.NotFound("notification not found")
	}

	if !n.Read {
		if err := s.repo.MarkRead(ctx, n.ID); err != nil {
			return NotificationResponse{}, fmt.Errorf("failed to mark notification as read: %w", err)
		}
		n.Read = true
	}
	return toNotificationResponse(n), nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, caller Caller) (MarkAllReadResponse, error) {
	count, err := s.repo.MarkAllRead(ctx, caller.ID)
	if err != nil {
		return MarkAllReadResponse{}, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return MarkAllReadResponse{MarkedAsRead: count}, nil
}

func (s *notificationService) Deliver(ctx context.Context, job queue.Job) error {
	userID, err := uuid.Parse(job.UserID)
	if err != nil {
		return fmt.Errorf("notification job has invalid user id %q", job.UserID)
	}
	n := &model.Notification{
		UserID: userID,
		Type:   job.Kind,
		Title:  job.Title,
		Body:   job.Body,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		User:      toParty(n.User),
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
	}
}
