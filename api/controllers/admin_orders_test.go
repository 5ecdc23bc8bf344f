package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	internalorders "github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/enums"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/pagination"
)

type stubAdminRepo struct {
	listFn  func(ctx context.Context, params pagination.Params, filters internalorders.Filters) (*internalorders.List, error)
	forceFn func(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

func (s stubAdminRepo) ListAll(ctx context.Context, params pagination.Params, filters internalorders.Filters) (*internalorders.List, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params, filters)
	}
	return &internalorders.List{}, nil
}

func (s stubAdminRepo) ForceStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.forceFn != nil {
		return s.forceFn(ctx, id, updates)
	}
	return nil
}

type stubSweeper struct {
	sweepFn func(ctx context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error)
	countFn func(ctx context.Context, stuckAfter time.Duration) (int64, error)
}

func (s stubSweeper) Sweep(ctx context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error) {
	if s.sweepFn != nil {
		return s.sweepFn(ctx, policy)
	}
	return &fulfillment.SweepResult{}, nil
}

func (s stubSweeper) StuckCount(ctx context.Context, stuckAfter time.Duration) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx, stuckAfter)
	}
	return 0, nil
}

func TestAdminListOrdersAppliesFilters(t *testing.T) {
	var seen internalorders.Filters
	repo := stubAdminRepo{
		listFn: func(_ context.Context, params pagination.Params, filters internalorders.Filters) (*internalorders.List, error) {
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			seen = filters
			return &internalorders.List{}, nil
		},
	}

	handler := AdminListOrders(repo, nil)
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&fulfillment_status=FAILED&service_type=TELECEL&q=PAY_", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if seen.FulfillmentStatus == nil || *seen.FulfillmentStatus != enums.FulfillmentStatusFailed {
		t.Fatalf("fulfillment status filter not forwarded: %+v", seen)
	}
	if seen.ServiceType == nil || *seen.ServiceType != enums.ServiceTypeTelecel {
		t.Fatalf("service type filter not forwarded: %+v", seen)
	}
	if seen.Query != "PAY_" {
		t.Fatalf("query filter not forwarded: %q", seen.Query)
	}
}

func TestAdminListOrdersRejectsBadStatus(t *testing.T) {
	handler := AdminListOrders(stubAdminRepo{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/?fulfillment_status=BOGUS", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func forceStatusRouter(repo stubAdminRepo) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/{orderId}/status", AdminForceOrderStatus(repo, nil))
	return r
}

func TestAdminForceOrderStatusUpdates(t *testing.T) {
	orderID := uuid.New()
	var captured map[string]any
	repo := stubAdminRepo{
		forceFn: func(_ context.Context, id uuid.UUID, updates map[string]any) error {
			if id != orderID {
				return gorm.ErrRecordNotFound
			}
			captured = updates
			return nil
		},
	}

	body := `{"fulfillment_status":"FULFILLED","supplier_reference":"WN-77"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	forceStatusRouter(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured["fulfillment_status"] != enums.FulfillmentStatusFulfilled {
		t.Fatalf("fulfillment status not forwarded: %+v", captured)
	}
	if captured["supplier_reference"] != "WN-77" {
		t.Fatalf("supplier reference not forwarded: %+v", captured)
	}
}

func TestAdminForceOrderStatusUnknownOrder(t *testing.T) {
	repo := stubAdminRepo{
		forceFn: func(context.Context, uuid.UUID, map[string]any) error {
			return gorm.ErrRecordNotFound
		},
	}

	body := `{"fulfillment_status":"FAILED"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	forceStatusRouter(repo).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminForceOrderStatusRejectsBadID(t *testing.T) {
	body := `{"fulfillment_status":"FAILED"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/not-a-uuid/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	forceStatusRouter(stubAdminRepo{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminTriggerSweepForwardsPolicy(t *testing.T) {
	cfg := config.SweeperConfig{StuckAfter: 30 * time.Minute, AutoFulfillAfter: 2 * time.Hour}
	var seen fulfillment.SweepPolicy
	sweeper := stubSweeper{
		sweepFn: func(_ context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error) {
			seen = policy
			return &fulfillment.SweepResult{Processed: 3, Flagged: 2, AutoFulfilled: 1}, nil
		},
	}

	handler := AdminTriggerSweep(sweeper, cfg, nil)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.StuckAfter != cfg.StuckAfter || seen.AutoFulfillAfter != cfg.AutoFulfillAfter {
		t.Fatalf("policy not forwarded: %+v", seen)
	}
}

func TestAdminTriggerSweepSurfacesPartialResult(t *testing.T) {
	cfg := config.SweeperConfig{StuckAfter: 30 * time.Minute, AutoFulfillAfter: 2 * time.Hour}
	sweeper := stubSweeper{
		sweepFn: func(context.Context, fulfillment.SweepPolicy) (*fulfillment.SweepResult, error) {
			return &fulfillment.SweepResult{Processed: 4, Flagged: 1, AutoFulfilled: 2, Errors: 1},
				errors.New("auto-fulfill order x: connection reset")
		},
	}

	logg := logger.New(logger.Options{ServiceName: "admin-test", Output: io.Discard})
	handler := AdminTriggerSweep(sweeper, cfg, logg)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("partial sweep must still report counts, got %d", rec.Code)
	}
	var envelope struct {
		Data fulfillment.SweepResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Processed != 4 || envelope.Data.AutoFulfilled != 2 || envelope.Data.Errors != 1 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestAdminStuckOrdersReportsCount(t *testing.T) {
	cfg := config.SweeperConfig{StuckAfter: 45 * time.Minute}
	sweeper := stubSweeper{
		countFn: func(_ context.Context, stuckAfter time.Duration) (int64, error) {
			if stuckAfter != cfg.StuckAfter {
				t.Fatalf("unexpected window %s", stuckAfter)
			}
			return 7, nil
		},
	}

	handler := AdminStuckOrders(sweeper, cfg, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			StuckOrders int64 `json:"stuck_orders"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.StuckOrders != 7 {
		t.Fatalf("expected 7 stuck orders, got %d", envelope.Data.StuckOrders)
	}
}
