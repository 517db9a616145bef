package service

import (
	"context"
	"fmt"
	"strings"

	"supplylink/internal/model"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"
)

// --- DTOs ---

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int64  `json:"product_count"`
	CreatedAt    string `json:"created_at"`
}

// --- Interface ---

type CategoryService interface {
	FindAll(ctx context.Context) ([]CategoryResponse, error)
	Create(ctx context.Context, req CategoryRequest) (CategoryResponse, error)
	Update(ctx context.Context, id string, req CategoryRequest) (CategoryResponse, error)
	Delete(ctx context.Context, id string) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

// --- Implementation ---

func (s *categoryService) FindAll(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.repo.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	result := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		result = append(result, toCategoryResponse(&categories[i]))
	}
	return result, nil
}

func (s *categoryService) Create(ctx context.Context, req CategoryRequest) (CategoryResponse, error) {
	category := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if repository.IsUniqueViolation(err) {
			return CategoryResponse{}, apperror.Conflict("category %q already exists", category.Name)
		}
		return CategoryResponse{}, fmt.Errorf("failed to create category: %w", err)
	}
	return toCategoryResponse(category), nil
}

func (s *categoryService) Update(ctx context.Context, id string, req CategoryRequest) (CategoryResponse, error) {
	categoryID, err := parseID(id, "category")
	if err != nil {
		return CategoryResponse{}, err
	}
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return CategoryResponse{}, notFound(err, "category not found")
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if err := s.repo.Update(ctx, category); err != nil {
		if repository.IsUniqueViolation(err) {
			return CategoryResponse{}, apperror.Conflict("category %q already exists", category.Name)
		}
		return CategoryResponse{}, fmt.Errorf("failed to update category: %w", err)
	}
	return toCategoryResponse(category), nil
}

func (s *categoryService) Delete(ctx context.Context, id string) error {
	categoryID, err := parseID(id, "category")
	if err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, categoryID); err != nil {
		return notFound(err, "category not found")
	}
	if err := s.repo.Delete(ctx, categoryID); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func toCategoryResponse(c *model.Category) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Description:  c.Description,
		ProductCount: c.ProductCount,
		CreatedAt:    formatTime(c.CreatedAt),
	}
}
