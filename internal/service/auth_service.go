package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/internal/token"
	"supplylink/internal/tokenstore"
	"supplylink/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// --- DTOs ---

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	CompanyName string `json:"company_name" binding:"required"`
	CNPJ        string `json:"cnpj" binding:"required"`
	Role        string `json:"role" binding:"required,oneof=FACTORY SUPPLIER"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type AuthResponse struct {
	token.Pair
	User UserResponse `json:"user"`
}

// --- Interface ---

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Me(ctx context.Context, caller Caller) (UserResponse, error)
}

// TokenStore holds revoked refresh tokens and pending password resets.
// Implemented by tokenstore.Store.
type TokenStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *token.Manager
	store    TokenStore
	jobs     JobQueue
	resetTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *token.Manager,
	store TokenStore,
	jobs JobQueue,
	resetTTL time.Duration,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		store:    store,
		jobs:     jobs,
		resetTTL: resetTTL,
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

// --- Implementation ---

// Register creates a PENDING account that an admin must approve before login.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	if req.Role != model.RoleFactory && req.Role != model.RoleSupplier {
		return UserResponse{}, apperror.BadRequest("role must be FACTORY or SUPPLIER")
	}
	email := normalizeEmail(req.Email)
	cnpj := strings.TrimSpace(req.CNPJ)

	exists, err := s.userRepo.ExistsByEmailOrCNPJ(ctx, email, cnpj)
	if err != nil {
		return UserResponse{}, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return UserResponse{}, apperror.Conflict("email or cnpj already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Password:    string(hash),
		Role:        req.Role,
		Status:      model.UserStatusPending,
		CompanyName: strings.TrimSpace(req.CompanyName),
		CNPJ:        cnpj,
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return UserResponse{}, apperror.Conflict("email or cnpj already registered")
		}
		return UserResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	return toUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return AuthResponse{}, apperror.Unauthorized("invalid credentials")
		}
		return AuthResponse{}, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return AuthResponse{}, apperror.Unauthorized("invalid credentials")
	}
	if user.Status != model.UserStatusActive {
		return AuthResponse{}, apperror.Forbidden("account not active")
	}

	pair, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return AuthResponse{Pair: pair, User: toUserResponse(user)}, nil
}

// Refresh rotates the pair: the presented refresh token is denylisted for the rest
// of its lifetime and can never be used again.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	if refreshToken == "" {
		return token.Pair{}, apperror.Unauthorized("refresh token required")
	}

	revoked, err := s.store.IsRevoked(ctx, refreshToken)
	if err != nil {
		return token.Pair{}, err
	}
	if revoked {
		return token.Pair{}, apperror.Unauthorized("refresh token revoked")
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return token.Pair{}, apperror.Unauthorized("invalid refresh token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return token.Pair{}, apperror.Unauthorized("invalid refresh token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return token.Pair{}, apperror.Unauthorized("user not found")
		}
		return token.Pair{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Status == model.UserStatusBlocked {
		return token.Pair{}, apperror.Unauthorized("account blocked")
	}

	if err := s.store.Revoke(ctx, refreshToken, claims.ExpiresAt.Sub(s.now())); err != nil {
		return token.Pair{}, err
	}

	pair, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return token.Pair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return pair, nil
}

// Logout revokes the refresh token. Unparseable tokens are ignored.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	return s.store.Revoke(ctx, refreshToken, claims.ExpiresAt.Sub(s.now()))
}

// ForgotPassword never reveals whether the email is registered.
func (s *authService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Warn("load user for password reset", zap.Error(err))
		}
		return nil
	}

	resetToken, err := randomToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.store.SaveResetToken(ctx, resetToken, user.ID.String(), s.resetTTL); err != nil {
		return err
	}

	dispatch(ctx, s.jobs, s.logger, queue.EmailJob(
		user.Email,
		"Reset your SupplyLink password",
		fmt.Sprintf("Use this token to reset your password within %s: %s", s.resetTTL, resetToken),
	))
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	rawID, err := s.store.ConsumeResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrTokenNotFound) {
			return apperror.BadRequest("invalid or expired token")
		}
		return err
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return apperror.BadRequest("invalid or expired token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, caller Caller) (UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return UserResponse{}, notFound(err, "user not found")
	}
	return toUserResponse(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
