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
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateProductRequest struct {
	CategoryID  string           `json:"category_id" binding:"required,uuid"`
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Unit        string           `json:"unit" binding:"required"`
	BasePrice   *decimal.Decimal `json:"base_price" binding:"required"`
	StockQty    int              `json:"stock_qty" binding:"min=0"`
}

type UpdateProductRequest struct {
	CategoryID  *string          `json:"category_id" binding:"omitempty,uuid"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	StockQty    *int             `json:"stock_qty" binding:"omitempty,min=0"`
}

// ProductFilterRequest is bound from the query string.
type ProductFilterRequest struct {
	Search     string `form:"search"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
}

type ProductResponse struct {
	ID          string            `json:"id"`
	SupplierID  string            `json:"supplier_id"`
	Supplier    *PartyResponse    `json:"supplier,omitempty"`
	CategoryID  string            `json:"category_id"`
	Category    *CategoryResponse `json:"category,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Unit        string            `json:"unit"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	StockQty    int               `json:"stock_qty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// --- Interface ---

type ProductService interface {
	FindAll(ctx context.Context, filter ProductFilterRequest, p pagination.Params) ([]ProductResponse, int64, error)
	FindByID(ctx context.Context, id string) (ProductResponse, error)
	FindMine(ctx context.Context, caller Caller, p pagination.Params) ([]ProductResponse, int64, error)
	Create(ctx context.Context, caller Caller, req CreateProductRequest) (ProductResponse, error)
	Update(ctx context.Context, id string, caller Caller, req UpdateProductRequest) (ProductResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) ProductService {
	return &productService{productRepo: productRepo, categoryRepo: categoryRepo}
}

// --- Implementation ---

func (s *productService) FindAll(ctx context.Context, filter ProductFilterRequest, p pagination.Params) ([]ProductResponse, int64, error) {
	repoFilter := repository.ProductFilter{Name: strings.TrimSpace(filter.Search)}

	if filter.CategoryID != "" {
		id, err := parseID(filter.CategoryID, "category")
		if err != nil {
			return nil, 0, err
		}
		repoFilter.CategoryID = &id
	}
	if filter.SupplierID != "" {
		id, err := parseID(filter.SupplierID, "supplier")
		if err != nil {
			return nil, 0, err
		}
		repoFilter.SupplierID = &id
	}
	var err error
	if repoFilter.MinPrice, err = parsePrice(filter.MinPrice, "min_price"); err != nil {
		return nil, 0, err
	}
	if repoFilter.MaxPrice, err = parsePrice(filter.MaxPrice, "max_price"); err != nil {
		return nil, 0, err
	}

	return s.list(ctx, repoFilter, p)
}

func (s *productService) FindMine(ctx context.Context, caller Caller, p pagination.Params) ([]ProductResponse, int64, error) {
	return s.list(ctx, repository.ProductFilter{SupplierID: &caller.ID}, p)
}

func (s *productService) FindByID(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := parseID(id, "product")
	if err != nil {
		return ProductResponse{}, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, notFound(err, "product not found")
	}
	return toProductResponse(product), nil
}

func (s *productService) Create(ctx context.Context, caller Caller, req CreateProductRequest) (ProductResponse, error) {
	categoryID, err := s.categoryExists(ctx, req.CategoryID)
	if err != nil {
		return ProductResponse{}, err
	}
	if req.BasePrice == nil || req.BasePrice.IsNegative() {
		return ProductResponse{}, apperror.BadRequest("base_price must not be negative")
	}

	product := &model.Product{
		SupplierID:  caller.ID,
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Unit:        strings.TrimSpace(req.Unit),
		BasePrice:   *req.BasePrice,
		StockQty:    req.StockQty,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}
	return s.reload(ctx, product.ID)
}

func (s *productService) Update(ctx context.Context, id string, caller Caller, req UpdateProductRequest) (ProductResponse, error) {
	product, err := s.owned(ctx, id, caller)
	if err != nil {
		return ProductResponse{}, err
	}

	if req.CategoryID != nil {
		categoryID, err := s.categoryExists(ctx, *req.CategoryID)
		if err != nil {
			return ProductResponse{}, err
		}
		product.CategoryID = categoryID
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.BasePrice != nil {
		if req.BasePrice.IsNegative() {
			return ProductResponse{}, apperror.BadRequest("base_price must not be negative")
		}
		product.BasePrice = *req.BasePrice
	}
	if req.StockQty != nil {
		product.StockQty = *req.StockQty
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}
	return s.reload(ctx, product.ID)
}

func (s *productService) Delete(ctx context.Context, id string, caller Caller) error {
	product, err := s.owned(ctx, id, caller)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// owned loads a product the caller is allowed to modify.
func (s *productService) owned(ctx context.Context, id string, caller Caller) (*model.Product, error) {
	productID, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	if product.SupplierID != caller.ID {
		return nil, apperror.Forbidden("not allowed to modify this product")
	}
	return product, nil
}

func (s *productService) categoryExists(ctx context.Context, raw string) (uuid.UUID, error) {
	categoryID, err := parseID(raw, "category")
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if repository.IsNotFound(err) {
			return uuid.Nil, apperror.BadRequest("category does not exist")
		}
		return uuid.Nil, err
	}
	return categoryID, nil
}

func (s *productService) list(ctx context.Context, filter repository.ProductFilter, p pagination.Params) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, toProductResponse(&products[i]))
	}
	return result, total, nil
}

func (s *productService) reload(ctx context.Context, id uuid.UUID) (ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to reload product: %w", err)
	}
	return toProductResponse(product), nil
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperror.BadRequest("%s must be a number", field)
	}
	return &d, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID.String(),
		SupplierID:  p.SupplierID.String(),
		Supplier:    toParty(p.Supplier),
		CategoryID:  p.CategoryID.String(),
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		BasePrice:   p.BasePrice,
		StockQty:    p.StockQty,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if p.Category != nil {
		c := toCategoryResponse(p.Category)
		res.Category = &c
	}
	return res
}
