package repository

import (
	"context"
	"strings"

	"supplylink/internal/model"
	"supplylink/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilter holds the optional catalog search criteria
type ProductFilter struct {
	Name       string
	CategoryID *uuid.UUID
	SupplierID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, p pagination.Params) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Category", "Supplier").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").Preload("Supplier").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, p pagination.Params) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Name != "" {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
		}
		if filter.CategoryID != nil {
			db = db.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.SupplierID != nil {
			db = db.Where("supplier_id = ?", *filter.SupplierID)
		}
		if filter.MinPrice != nil {
			db = db.Where("base_price >= ?", *filter.MinPrice)
		}
		if filter.MaxPrice != nil {
			db = db.Where("base_price <= ?", *filter.MaxPrice)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Product{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).
		Preload("Category").
		Preload("Supplier").
		Order("created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}
