package service

import (
	"context"
	"fmt"
	"strings"

	"supplylink/internal/model"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
)

// --- DTOs ---

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

type UserFilterRequest struct {
	Role   string `form:"role" binding:"omitempty,oneof=FACTORY SUPPLIER ADMIN"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING ACTIVE BLOCKED"`
	Search string `form:"search"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	CompanyName string `json:"company_name"`
	CNPJ        string `json:"cnpj"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	List(ctx context.Context, filter UserFilterRequest, p pagination.Params) ([]UserResponse, int64, error)
	FindByID(ctx context.Context, id string) (UserResponse, error)
	Approve(ctx context.Context, id string, caller Caller) (UserResponse, error)
	Block(ctx context.Context, id string, caller Caller) (UserResponse, error)
	Remove(ctx context.Context, id string) error
	GetProfile(ctx context.Context, caller Caller) (UserResponse, error)
	UpdateProfile(ctx context.Context, caller Caller, req UpdateProfileRequest) (UserResponse, error)
}

type userService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewUserService(
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UserService {
	return &userService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func (s *userService) List(ctx context.Context, filter UserFilterRequest, p pagination.Params) ([]UserResponse, int64, error) {
	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Role:   filter.Role,
		Status: filter.Status,
		Search: strings.TrimSpace(filter.Search),
	}, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) FindByID(ctx context.Context, id string) (UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return UserResponse{}, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return UserResponse{}, notFound(err, "user not found")
	}
	return toUserResponse(user), nil
}

func (s *userService) Approve(ctx context.Context, id string, caller Caller) (UserResponse, error) {
	return s.setStatus(ctx, id, caller, model.UserStatusActive, model.ActionApproveUser)
}

func (s *userService) Block(ctx context.Context, id string, caller Caller) (UserResponse, error) {
	return s.setStatus(ctx, id, caller, model.UserStatusBlocked, model.ActionBlockUser)
}

func (s *userService) setStatus(ctx context.Context, id string, caller Caller, status, action string) (UserResponse, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return UserResponse{}, err
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.userRepo.GetByID(txCtx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}
		if user.ID == caller.ID && status == model.UserStatusBlocked {
			return apperror.BadRequest("cannot block your own account")
		}

		previous := user.Status
		if err := s.userRepo.UpdateStatus(txCtx, userID, status); err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}
		user.Status = status

		return s.auditRepo.Record(txCtx, caller.ID, action, userID.String(), user.CompanyName, map[string]interface{}{
			"from": previous,
			"to":   status,
		})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

// Remove soft-deletes the account. Its email and cnpj stay reserved.
func (s *userService) Remove(ctx context.Context, id string) error {
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return notFound(err, "user not found")
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, caller Caller) (UserResponse, error) {
	return s.load(ctx, caller.ID)
}

func (s *userService) UpdateProfile(ctx context.Context, caller Caller, req UpdateProfileRequest) (UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return UserResponse{}, notFound(err, "user not found")
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.CompanyName != nil && strings.TrimSpace(*req.CompanyName) != "" {
		user.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		user.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return UserResponse{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return toUserResponse(user), nil
}

func (s *userService) load(ctx context.Context, id uuid.UUID) (UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, notFound(err, "user not found")
	}
	return toUserResponse(user), nil
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Status:      u.Status,
		CompanyName: u.CompanyName,
		CNPJ:        u.CNPJ,
		Phone:       u.Phone,
		Address:     u.Address,
		CreatedAt:   formatTime(u.CreatedAt),
		UpdatedAt:   formatTime(u.UpdatedAt),
	}
}
