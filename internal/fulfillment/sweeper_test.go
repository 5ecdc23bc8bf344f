package fulfillment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/google/uuid"

	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

func newTestSweeper(t *testing.T, repo *fakeRepo, now time.Time) *Sweeper {
	t.Helper()
	sweeper, err := NewSweeper(
		repo,
		logger.New(logger.Options{ServiceName: "sweeper-test", Output: io.Discard}),
		nil,
		func() time.Time { return now },
	)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	return sweeper
}

func stuckOrder(reference string, status enums.FulfillmentStatus, updatedAt time.Time) models.Order {
	return models.Order{
		UserID:            uuid.New(),
		ServiceType:       enums.ServiceTypeAT,
		Amount:            decimal.RequireFromString("10.00"),
		BeneficiaryPhone:  "0261000001",
		PaymentReference:  reference,
		SupplierPackageID: "at-1gb",
		PaymentStatus:     enums.PaymentStatusPaid,
		FulfillmentStatus: status,
		UpdatedAt:         updatedAt,
	}
}

func TestSweepFlagsWithoutAutoFulfillWindow(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo()
	sweeper := newTestSweeper(t, repo, now)

	id := repo.add(stuckOrder("PAY_s1", enums.FulfillmentStatusQueued, now.Add(-time.Hour)))

	result, err := sweeper.Sweep(context.Background(), SweepPolicy{
		StuckAfter:       30 * time.Minute,
		AutoFulfillAfter: 0,
	})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 1 || result.Flagged != 1 || result.AutoFulfilled != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := repo.get(id).FulfillmentStatus; got != enums.FulfillmentStatusQueued {
		t.Fatalf("flagged order must stay in place, got %s", got)
	}
}

func TestSweepAutoFulfillBoundaryInclusive(t *testing.T) {
	now := time.Now().UTC()
	autoAfter := 2 * time.Hour

	// Aged exactly the auto-fulfill window: stamped.
	repo := newFakeRepo()
	sweeper := newTestSweeper(t, repo, now)
	atBoundary := repo.add(stuckOrder("PAY_s2", enums.FulfillmentStatusProcessing, now.Add(-autoAfter)))

	result, err := sweeper.Sweep(context.Background(), SweepPolicy{
		StuckAfter:       30 * time.Minute,
		AutoFulfillAfter: autoAfter,
	})
	if err != nil {
		t.Fatalf("sweep at boundary: %v", err)
	}
	if result.AutoFulfilled != 1 {
		t.Fatalf("age == window must auto-fulfill, got %+v", result)
	}
	stamped := repo.get(atBoundary)
	if stamped.FulfillmentStatus != enums.FulfillmentStatusFulfilled {
		t.Fatalf("expected FULFILLED, got %s", stamped.FulfillmentStatus)
	}
	if stamped.SupplierReference == nil || !strings.HasPrefix(*stamped.SupplierReference, "AUTO_FULFILLED_") {
		t.Fatalf("synthetic reference missing, got %v", stamped.SupplierReference)
	}

	// One second short of the window: flagged only.
	repo = newFakeRepo()
	sweeper = newTestSweeper(t, repo, now)
	under := repo.add(stuckOrder("PAY_s3", enums.FulfillmentStatusProcessing, now.Add(-autoAfter+time.Second)))

	result, err = sweeper.Sweep(context.Background(), SweepPolicy{
		StuckAfter:       30 * time.Minute,
		AutoFulfillAfter: autoAfter,
	})
	if err != nil {
		t.Fatalf("sweep under boundary: %v", err)
	}
	if result.AutoFulfilled != 0 || result.Flagged != 1 {
		t.Fatalf("age < window must only flag, got %+v", result)
	}
	if got := repo.get(under).FulfillmentStatus; got != enums.FulfillmentStatusProcessing {
		t.Fatalf("under-age order moved to %s", got)
	}
}

func TestSweepIgnoresTerminalAndFreshOrders(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo()
	sweeper := newTestSweeper(t, repo, now)

	repo.add(stuckOrder("PAY_s4", enums.FulfillmentStatusFulfilled, now.Add(-3*time.Hour)))
	repo.add(stuckOrder("PAY_s5", enums.FulfillmentStatusProcessing, now.Add(-time.Minute)))

	result, err := sweeper.Sweep(context.Background(), SweepPolicy{
		StuckAfter:       30 * time.Minute,
		AutoFulfillAfter: time.Hour,
	})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("terminal and fresh orders must not be selected, got %+v", result)
	}
}

func TestSweepLosesToConcurrentWebhookWrite(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo()

	seenAt := now.Add(-3 * time.Hour)
	id := repo.add(stuckOrder("PAY_s6", enums.FulfillmentStatusProcessing, seenAt))

	// Simulate a webhook landing after selection but before the stamp:
	// the row's updated_at moves, so the guarded update must lose.
	repo.mu.Lock()
	ref := "WN-REAL"
	repo.orders[id].SupplierReference = &ref
	repo.orders[id].FulfillmentStatus = enums.FulfillmentStatusFulfilled
	repo.orders[id].UpdatedAt = now.Add(-time.Second)
	repo.mu.Unlock()

	won, err := repo.UpdateStuckGuarded(context.Background(), id, seenAt, map[string]any{
		"fulfillment_status": enums.FulfillmentStatusFulfilled,
		"supplier_reference": "AUTO_FULFILLED_1",
	})
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if won {
		t.Fatalf("stale sweep stamp must lose to the fresher write")
	}
	if got := repo.get(id); *got.SupplierReference != "WN-REAL" {
		t.Fatalf("real supplier reference overwritten: %v", *got.SupplierReference)
	}
}

func TestSweepReportsPartialResultOnStampFailure(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo()
	sweeper := newTestSweeper(t, repo, now)

	okID := repo.add(stuckOrder("PAY_s9", enums.FulfillmentStatusProcessing, now.Add(-3*time.Hour)))
	badID := repo.add(stuckOrder("PAY_s10", enums.FulfillmentStatusProcessing, now.Add(-3*time.Hour)))
	repo.stuckErr = map[uuid.UUID]error{badID: errors.New("connection reset")}

	result, err := sweeper.Sweep(context.Background(), SweepPolicy{
		StuckAfter:       30 * time.Minute,
		AutoFulfillAfter: time.Hour,
	})
	if err == nil {
		t.Fatalf("failed stamp must surface an error")
	}
	if result == nil {
		t.Fatalf("partial result must accompany the error")
	}
	if result.Processed != 2 || result.AutoFulfilled != 1 || result.Errors != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := repo.get(okID).FulfillmentStatus; got != enums.FulfillmentStatusFulfilled {
		t.Fatalf("healthy order must still be stamped, got %s", got)
	}
	if got := repo.get(badID).FulfillmentStatus; got != enums.FulfillmentStatusProcessing {
		t.Fatalf("failed stamp must leave the order in place, got %s", got)
	}
}

func TestStuckCount(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo()
	sweeper := newTestSweeper(t, repo, now)

	repo.add(stuckOrder("PAY_s7", enums.FulfillmentStatusQueued, now.Add(-time.Hour)))
	repo.add(stuckOrder("PAY_s8", enums.FulfillmentStatusProcessing, now.Add(-time.Minute)))

	count, err := sweeper.StuckCount(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("stuck count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stuck order, got %d", count)
	}
}
