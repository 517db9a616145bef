package service

import (
	"context"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Caller is the authenticated user performing an operation.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// NewCaller builds a Caller from the identity the auth middleware stored on the request.
func NewCaller(userID, role string) (Caller, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Caller{}, apperror.Unauthorized("invalid user identity")
	}
	return Caller{ID: id, Role: role}, nil
}

func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// JobQueue accepts background jobs. Implemented by queue.StreamQueue.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// StatusBroadcaster pushes order status changes to live subscribers.
type StatusBroadcaster interface {
	EmitStatusUpdate(orderID, status string)
}

// dispatch enqueues jobs after a commit. Failures are logged and never fail the caller.
func dispatch(ctx context.Context, q JobQueue, logger *zap.Logger, jobs ...queue.Job) {
	if q == nil {
		return
	}
	for _, job := range jobs {
		if err := q.Enqueue(ctx, job); err != nil {
			logger.Warn("enqueue job", zap.String("type", job.Type), zap.Error(err))
		}
	}
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid %s id", what)
	}
	return id, nil
}

// notFound converts gorm's not-found into a NotFound error and passes other errors through.
func notFound(err error, message string) error {
	if repository.IsNotFound(err) {
		return apperror.NotFound("%s", message)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// --- Shared response DTOs ---

// PartyResponse is the public view of a factory or supplier account.
type PartyResponse struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
}

func toParty(u *model.User) *PartyResponse {
	if u == nil {
		return nil
	}
	return &PartyResponse{ID: u.ID.String(), CompanyName: u.CompanyName, Email: u.Email}
}
