package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/internal/service"
	"supplylink/internal/testutil"
	"supplylink/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeML struct {
	predictions []float64
	status      int
	forecasts   atomic.Int32
	trainings   atomic.Int32
	lastHorizon atomic.Int32
}

func (f *fakeML) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/forecast/":
		f.forecasts.Add(1)
		var req struct {
			ProductID   string `json:"product_id"`
			HorizonDays int    `json:"horizon_days"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastHorizon.Store(int32(req.HorizonDays))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"product_id":    req.ProductID,
			"predictions":   f.predictions,
			"model_version": "",
		})
	case "/train/":
		f.trainings.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "training started"})
	default:
		http.NotFound(w, r)
	}
}

func newForecastEnv(t *testing.T, ml *fakeML) (service.ForecastService, *model.Product, *model.User) {
	t.Helper()
	db := testutil.NewDB(t)
	srv := httptest.NewServer(ml)
	t.Cleanup(srv.Close)

	supplier := testutil.CreateUser(t, db, model.RoleSupplier)
	factory := testutil.CreateUser(t, db, model.RoleFactory)
	category := &model.Category{Name: "Metals"}
	require.NoError(t, db.Create(category).Error)
	product := &model.Product{SupplierID: supplier.ID, CategoryID: category.ID, Name: "Steel sheet", Unit: "kg"}
	require.NoError(t, db.Create(product).Error)

	svc := service.NewForecastService(
		repository.NewForecastRepository(db),
		repository.NewProductRepository(db),
		srv.URL,
		2*time.Second,
		nil,
	)
	return svc, product, factory
}

func TestForecast_StoresOneRowPerPredictedDay(t *testing.T) {
	ml := &fakeML{predictions: []float64{120, 1500, 980}}
	svc, product, factory := newForecastEnv(t, ml)
	ctx := context.Background()

	points, err := svc.GetForecast(ctx, callerOf(factory), product.ID.String(), 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.EqualValues(t, service.DefaultHorizonDays, ml.lastHorizon.Load())

	tomorrow := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1).Format("2006-01-02")
	assert.Equal(t, tomorrow, points[0].ForecastDate)
	for _, p := range points {
		assert.Equal(t, "v1", p.ModelVersion)
		assert.Equal(t, service.DefaultHorizonDays, p.HorizonDays)
		assert.NotEmpty(t, p.ID)
	}

	alerts, err := svc.GetAlerts(ctx, callerOf(factory))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 1500.0, alerts[0].PredictedQuantity)
	assert.Equal(t, "Steel sheet", alerts[0].ProductName)
}

func TestForecast_Validation(t *testing.T) {
	ml := &fakeML{predictions: []float64{1}}
	svc, product, factory := newForecastEnv(t, ml)
	ctx := context.Background()

	for _, horizon := range []int{6, 91, -1} {
		_, err := svc.GetForecast(ctx, callerOf(factory), product.ID.String(), horizon)
		assert.ErrorIs(t, err, apperror.ErrBadRequest, "horizon %d", horizon)
	}

	_, err := svc.GetForecast(ctx, callerOf(factory), "00000000-0000-0000-0000-000000000001", 7)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, ml.forecasts.Load(), "ml service not called for invalid input")

	_, err = svc.GetForecast(ctx, callerOf(factory), product.ID.String(), 90)
	assert.NoError(t, err)
}

func TestForecast_AlertsScopedToFactory(t *testing.T) {
	ml := &fakeML{predictions: []float64{2000}}
	svc, product, factory := newForecastEnv(t, ml)
	ctx := context.Background()

	_, err := svc.GetForecast(ctx, callerOf(factory), product.ID.String(), 7)
	require.NoError(t, err)

	other := service.Caller{ID: product.SupplierID, Role: model.RoleFactory}
	alerts, err := svc.GetAlerts(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	admin := service.Caller{ID: product.SupplierID, Role: model.RoleAdmin}
	alerts, err = svc.GetAlerts(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestForecast_UpstreamFailureIsInternal(t *testing.T) {
	ml := &fakeML{status: http.StatusBadGateway}
	svc, product, factory := newForecastEnv(t, ml)
	ctx := context.Background()

	_, err := svc.GetForecast(ctx, callerOf(factory), product.ID.String(), 7)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(err))

	_, err = svc.TriggerTraining(ctx)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestForecast_TrainingJob(t *testing.T) {
	ml := &fakeML{}
	svc, _, _ := newForecastEnv(t, ml)

	out, err := svc.TriggerTraining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "training started", out["status"])

	require.NoError(t, svc.HandleJob(context.Background(), queue.MLTriggerJob("order delivered")))
	assert.EqualValues(t, 2, ml.trainings.Load())
}
