package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultHorizonDays = 30
	MinHorizonDays     = 7
	MaxHorizonDays     = 90
	alertLimit         = 50
)

// --- DTOs ---

type ForecastPoint struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	ForecastDate      string  `json:"forecast_date"`
	PredictedQuantity float64 `json:"predicted_quantity"`
	HorizonDays       int     `json:"horizon_days"`
	ModelVersion      string  `json:"model_version"`
}

type AlertResponse struct {
	ID                string  `json:"id"`
	FactoryID         string  `json:"factory_id"`
	ProductID         string  `json:"product_id"`
	ProductName       string  `json:"product_name"`
	ForecastDate      string  `json:"forecast_date"`
	PredictedQuantity float64 `json:"predicted_quantity"`
	HorizonDays       int     `json:"horizon_days"`
}

// mlForecastRequest and mlForecastResponse mirror the ML sidecar's JSON contract.
type mlForecastRequest struct {
	ProductID   string `json:"product_id"`
	FactoryID   string `json:"factory_id"`
	HorizonDays int    `json:"horizon_days"`
}

type mlForecastResponse struct {
	ProductID    string    `json:"product_id"`
	Predictions  []float64 `json:"predictions"`
	ModelVersion string    `json:"model_version"`
}

// --- Interface ---

type ForecastService interface {
	GetForecast(ctx context.Context, caller Caller, productID string, horizonDays int) ([]ForecastPoint, error)
	GetAlerts(ctx context.Context, caller Caller) ([]AlertResponse, error)
	TriggerTraining(ctx context.Context) (map[string]interface{}, error)
	// HandleJob serves ml-trigger jobs from the worker.
	HandleJob(ctx context.Context, job queue.Job) error
}

type forecastService struct {
	forecastRepo repository.ForecastRepository
	productRepo  repository.ProductRepository
	baseURL      string
	client       *http.Client
	logger       *zap.Logger
	now          func() time.Time
}

func NewForecastService(
	forecastRepo repository.ForecastRepository,
	productRepo repository.ProductRepository,
	baseURL string,
	timeout time.Duration,
	logger *zap.Logger,
) ForecastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &forecastService{
		forecastRepo: forecastRepo,
		productRepo:  productRepo,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.Named("forecast"),
		now:          time.Now,
	}
}

// --- Implementation ---

// GetForecast asks the ML service for a daily forecast and stores one row per predicted day.
func (s *forecastService) GetForecast(ctx context.Context, caller Caller, productID string, horizonDays int) ([]ForecastPoint, error) {
	if horizonDays == 0 {
		horizonDays = DefaultHorizonDays
	}
	if horizonDays < MinHorizonDays || horizonDays > MaxHorizonDays {
		return nil, apperror.BadRequest("horizon must be between %d and %d days", MinHorizonDays, MaxHorizonDays)
	}
	pid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	if _, err := s.productRepo.FindByID(ctx, pid); err != nil {
		return nil, notFound(err, "product not found")
	}

	var out mlForecastResponse
	err = s.post(ctx, "/forecast/", mlForecastRequest{
		ProductID:   pid.String(),
		FactoryID:   caller.ID.String(),
		HorizonDays: horizonDays,
	}, &out)
	if err != nil {
		s.logger.Error("ml forecast", zap.String("product_id", pid.String()), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to obtain demand forecast")
	}

	version := out.ModelVersion
	if version == "" {
		version = "v1"
	}
	today := s.now().UTC().Truncate(24 * time.Hour)

	rows := make([]model.DemandForecast, 0, len(out.Predictions))
	for i, qty := range out.Predictions {
		rows = append(rows, model.DemandForecast{
			FactoryID:         caller.ID,
			ProductID:         pid,
			ForecastDate:      today.AddDate(0, 0, i+1),
			PredictedQuantity: qty,
			HorizonDays:       horizonDays,
			ModelVersion:      version,
		})
	}
	if err := s.forecastRepo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store forecasts: %w", err)
	}

	result := make([]ForecastPoint, 0, len(rows))
	for i := range rows {
		f := &rows[i]
		result = append(result, ForecastPoint{
			ID:                f.ID.String(),
			ProductID:         f.ProductID.String(),
			ForecastDate:      f.ForecastDate.Format(dateLayout),
			PredictedQuantity: f.PredictedQuantity,
			HorizonDays:       f.HorizonDays,
			ModelVersion:      f.ModelVersion,
		})
	}
	return result, nil
}

// GetAlerts lists high predicted demand. Factories see their own, admins see all.
func (s *forecastService) GetAlerts(ctx context.Context, caller Caller) ([]AlertResponse, error) {
	var factoryID *uuid.UUID
	if !caller.IsAdmin() {
		factoryID = &caller.ID
	}
	forecasts, err := s.forecastRepo.ListAlerts(ctx, factoryID, model.AlertThreshold, alertLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	result := make([]AlertResponse, 0, len(forecasts))
	for i := range forecasts {
		f := &forecasts[i]
		alert := AlertResponse{
			ID:                f.ID.String(),
			FactoryID:         f.FactoryID.String(),
			ProductID:         f.ProductID.String(),
			ForecastDate:      f.ForecastDate.Format(dateLayout),
			PredictedQuantity: f.PredictedQuantity,
			HorizonDays:       f.HorizonDays,
		}
		if f.Product != nil {
			alert.ProductName = f.Product.Name
		}
		result = append(result, alert)
	}
	return result, nil
}

func (s *forecastService) TriggerTraining(ctx context.Context) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := s.post(ctx, "/train/", nil, &out); err != nil {
		s.logger.Error("ml training", zap.Error(err))
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to trigger model training")
	}
	return out, nil
}

func (s *forecastService) HandleJob(ctx context.Context, job queue.Job) error {
	s.logger.Info("retraining requested", zap.String("reason", job.Reason))
	_, err := s.TriggerTraining(ctx)
	return err
}

func (s *forecastService) post(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("ml service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode ml response: %w", err)
	}
	return nil
}
