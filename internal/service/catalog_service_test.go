package service_test

import (
	"context"
	"testing"

	"supplylink/internal/model"
	"supplylink/internal/repository"
	"supplylink/internal/service"
	"supplylink/internal/testutil"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalog(db *gorm.DB) (service.CategoryService, service.ProductService) {
	categoryRepo := repository.NewCategoryRepository(db)
	return service.NewCategoryService(categoryRepo),
		service.NewProductService(repository.NewProductRepository(db), categoryRepo)
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCategoryService_UniqueNames(t *testing.T) {
	db := testutil.NewDB(t)
	categories, _ := newCatalog(db)
	ctx := context.Background()

	metals, err := categories.Create(ctx, service.CategoryRequest{Name: " Metals "})
	require.NoError(t, err)
	assert.Equal(t, "Metals", metals.Name)

	_, err = categories.Create(ctx, service.CategoryRequest{Name: "Metals"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	plastics, err := categories.Create(ctx, service.CategoryRequest{Name: "Plastics"})
	require.NoError(t, err)
	_, err = categories.Update(ctx, plastics.ID, service.CategoryRequest{Name: "Metals"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	require.NoError(t, categories.Delete(ctx, plastics.ID))
	assert.ErrorIs(t, categories.Delete(ctx, plastics.ID), apperror.ErrNotFound)
}

func TestProductService_OwnershipAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	categories, products := newCatalog(db)
	ctx := context.Background()

	supplier := testutil.CreateUser(t, db, model.RoleSupplier)
	rival := testutil.CreateUser(t, db, model.RoleSupplier)
	metals, err := categories.Create(ctx, service.CategoryRequest{Name: "Metals"})
	require.NoError(t, err)

	_, err = products.Create(ctx, callerOf(supplier), service.CreateProductRequest{
		CategoryID: "00000000-0000-0000-0000-000000000001", Name: "Ghost", Unit: "kg", BasePrice: price("1"),
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest, "unknown category")

	steel, err := products.Create(ctx, callerOf(supplier), service.CreateProductRequest{
		CategoryID: metals.ID, Name: "Steel sheet", Unit: "kg", BasePrice: price("12.50"), StockQty: 40,
	})
	require.NoError(t, err)
	require.NotNil(t, steel.Category)
	assert.Equal(t, "Metals", steel.Category.Name)

	_, err = products.Create(ctx, callerOf(rival), service.CreateProductRequest{
		CategoryID: metals.ID, Name: "Copper rod", Unit: "kg", BasePrice: price("80"),
	})
	require.NoError(t, err)

	newName := "Galvanized steel sheet"
	_, err = products.Update(ctx, steel.ID, callerOf(rival), service.UpdateProductRequest{Name: &newName})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.ErrorIs(t, products.Delete(ctx, steel.ID, callerOf(rival)), apperror.ErrForbidden)

	updated, err := products.Update(ctx, steel.ID, callerOf(supplier), service.UpdateProductRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)

	found, total, err := products.FindAll(ctx, service.ProductFilterRequest{Search: "STEEL"}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, steel.ID, found[0].ID)

	_, _, err = products.FindAll(ctx, service.ProductFilterRequest{MinPrice: "cheap"}, pagination.New(1, 10))
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	mine, total, err := products.FindMine(ctx, callerOf(rival), pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Copper rod", mine[0].Name)

	list, err := categories.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].ProductCount)

	require.NoError(t, products.Delete(ctx, steel.ID, callerOf(supplier)))
	_, err = products.FindByID(ctx, steel.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
