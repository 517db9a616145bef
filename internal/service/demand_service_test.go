package service_test

import (
	"context"
	"testing"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/service"
	"supplylink/internal/testutil"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemandService_CreateValidation(t *testing.T) {
	e := newEnv(t)
	factory := testutil.CreateUser(t, e.db, model.RoleFactory)

	_, err := e.demands.Create(context.Background(), callerOf(factory), service.CreateDemandRequest{
		ProductName: "Copper wire", Quantity: 10, Unit: "kg", NeededBy: "next week",
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = e.demands.Create(context.Background(), callerOf(factory), service.CreateDemandRequest{
		ProductName: "Copper wire", Quantity: 0, Unit: "kg", NeededBy: "2030-02-01",
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	got, err := e.demands.Create(context.Background(), callerOf(factory), service.CreateDemandRequest{
		ProductName: "  Copper wire ", Quantity: 10, Unit: "kg", NeededBy: "2030-02-01T15:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "Copper wire", got.ProductName)
	assert.Equal(t, "2030-02-01", got.NeededBy)

	created, err := time.Parse(time.RFC3339, got.CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created, time.Minute)
}

func TestDemandService_UpdateOnlyWhileOpen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	factory := testutil.CreateUser(t, e.db, model.RoleFactory)
	other := testutil.CreateUser(t, e.db, model.RoleFactory)
	supplier := testutil.CreateUser(t, e.db, model.RoleSupplier)
	demand := testutil.CreateDemand(t, e.db, factory)
	id := demand.ID.String()

	qty := 750.0
	updated, err := e.demands.Update(ctx, id, callerOf(factory), service.UpdateDemandRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 750.0, updated.Quantity)
	assert.Equal(t, demand.ProductName, updated.ProductName, "nil fields untouched")

	_, err = e.demands.Update(ctx, id, callerOf(other), service.UpdateDemandRequest{Quantity: &qty})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = e.quotes.RequestQuotes(ctx, callerOf(factory), service.RequestQuotesRequest{
		DemandID: id, SupplierIDs: []string{supplier.ID.String()},
	})
	require.NoError(t, err)

	_, err = e.demands.Update(ctx, id, callerOf(factory), service.UpdateDemandRequest{Quantity: &qty})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	cancelled, err := e.demands.Cancel(ctx, id, callerOf(factory))
	require.NoError(t, err)
	assert.Equal(t, model.DemandCancelled, cancelled.Status)
}

func TestDemandService_Scoping(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f1 := testutil.CreateUser(t, e.db, model.RoleFactory)
	f2 := testutil.CreateUser(t, e.db, model.RoleFactory)
	admin := testutil.CreateUser(t, e.db, model.RoleAdmin)

	d1 := testutil.CreateDemand(t, e.db, f1)
	testutil.CreateDemand(t, e.db, f1)
	testutil.CreateDemand(t, e.db, f2)

	mine, total, err := e.demands.FindAll(ctx, callerOf(f1), "", pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, d := range mine {
		assert.Equal(t, f1.ID.String(), d.FactoryID)
	}

	_, total, err = e.demands.FindAll(ctx, callerOf(admin), "", pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, _, err = e.demands.FindAll(ctx, callerOf(f1), "DONE", pagination.New(1, 10))
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = e.demands.FindByID(ctx, d1.ID.String(), callerOf(f2))
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = e.demands.FindByID(ctx, "00000000-0000-0000-0000-000000000001", callerOf(admin))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "demand not found")

	got, err := e.demands.FindByID(ctx, d1.ID.String(), callerOf(admin))
	require.NoError(t, err)
	assert.Equal(t, d1.ID.String(), got.ID)
}
