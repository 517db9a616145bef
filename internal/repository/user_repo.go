package repository

import (
	"context"
	"strings"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFilter narrows the admin user listing
type UserFilter struct {
	Role   string
	Status string
	Search string // matches name, email or company name
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmailOrCNPJ(ctx context.Context, email, cnpj string) (bool, error)
	List(ctx context.Context, filter UserFilter, p pagination.Params) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmailOrCNPJ includes soft-deleted rows since they still hold the unique keys.
func (r *userRepository) ExistsByEmailOrCNPJ(ctx context.Context, email, cnpj string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Unscoped().Model(&model.User{}).
		Where("(email = ? OR cnpj = ?)", strings.ToLower(email), cnpj).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, p pagination.Params) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Role != "" {
			db = db.Where("role = ?", filter.Role)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := "%" + strings.ToLower(filter.Search) + "%"
			db = db.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?)", like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("status", status).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("password", hash).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}).Error
}
