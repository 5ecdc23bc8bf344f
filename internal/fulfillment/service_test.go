package fulfillment

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/pagination"
	"github.com/yawasante/databundles-backend/pkg/wirenet"
)

// fakeRepo is an in-memory orders.Repository with the same guarded-update
// semantics as the real SQL implementation.
type fakeRepo struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*models.Order
	forceCalls int
	stuckErr   map[uuid.UUID]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeRepo) add(order models.Order) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	copied := order
	f.orders[order.ID] = &copied
	return order.ID
}

func (f *fakeRepo) get(id uuid.UUID) models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[id]
}

func (f *fakeRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	f.add(*order)
	return order, nil
}

func (f *fakeRepo) CreateBatch(_ context.Context, batch []models.Order) ([]models.Order, error) {
	for i := range batch {
		batch[i].ID = f.add(batch[i])
	}
	return batch, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeRepo) FindByPaymentReference(_ context.Context, reference string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []models.Order
	for _, order := range f.orders {
		if order.PaymentReference == reference {
			found = append(found, *order)
		}
	}
	return found, nil
}

func (f *fakeRepo) ListForUser(context.Context, uuid.UUID, pagination.Params, orders.Filters) (*orders.List, error) {
	return &orders.List{}, nil
}

func (f *fakeRepo) ListAll(context.Context, pagination.Params, orders.Filters) (*orders.List, error) {
	return &orders.List{}, nil
}

func (f *fakeRepo) MarkPaidForReference(_ context.Context, reference string, fulfillment enums.FulfillmentStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, order := range f.orders {
		if order.PaymentReference == reference && order.PaymentStatus == enums.PaymentStatusPending {
			order.PaymentStatus = enums.PaymentStatusPaid
			order.FulfillmentStatus = fulfillment
			order.UpdatedAt = time.Now().UTC()
			affected++
		}
	}
	return affected, nil
}

func (f *fakeRepo) MarkFailedForReference(_ context.Context, reference string, lastError string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, order := range f.orders {
		if order.PaymentReference == reference && order.PaymentStatus == enums.PaymentStatusPending {
			order.PaymentStatus = enums.PaymentStatusFailed
			order.FulfillmentStatus = enums.FulfillmentStatusFailed
			order.LastError = &lastError
			order.UpdatedAt = time.Now().UTC()
			affected++
		}
	}
	return affected, nil
}

func applyOrderUpdates(order *models.Order, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "fulfillment_status":
			order.FulfillmentStatus = value.(enums.FulfillmentStatus)
		case "supplier_reference":
			ref := value.(string)
			order.SupplierReference = &ref
		case "last_error":
			msg := value.(string)
			order.LastError = &msg
		case "payment_status":
			order.PaymentStatus = value.(enums.PaymentStatus)
		}
	}
	order.UpdatedAt = time.Now().UTC()
}

func (f *fakeRepo) UpdateFulfillmentGuarded(_ context.Context, id uuid.UUID, from []enums.FulfillmentStatus, to enums.FulfillmentStatus, updates map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if order.FulfillmentStatus == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	order.FulfillmentStatus = to
	applyOrderUpdates(order, updates)
	return true, nil
}

func (f *fakeRepo) UpdateStuckGuarded(_ context.Context, id uuid.UUID, seenUpdatedAt time.Time, updates map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.stuckErr[id]; err != nil {
		return false, err
	}
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	if !order.FulfillmentStatus.IsInFlight() || !order.UpdatedAt.Equal(seenUpdatedAt) {
		return false, nil
	}
	applyOrderUpdates(order, updates)
	return true, nil
}

func (f *fakeRepo) FindStuckBefore(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []models.Order
	for _, order := range f.orders {
		if order.FulfillmentStatus.IsInFlight() && order.UpdatedAt.Before(cutoff) {
			found = append(found, *order)
		}
	}
	return found, nil
}

func (f *fakeRepo) CountStuckBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	found, _ := f.FindStuckBefore(ctx, cutoff)
	return int64(len(found)), nil
}

func (f *fakeRepo) ForceStatus(_ context.Context, id uuid.UUID, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.forceCalls++
	applyOrderUpdates(order, updates)
	return nil
}

func (f *fakeRepo) forceStatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forceCalls
}

// fakeSupplier scripts supplier responses per phone number and records the
// request ids it was handed.
type fakeSupplier struct {
	mu         sync.Mutex
	placeCalls int
	requestIDs []string
	placeErr   map[string]error
	balance    *wirenet.BalanceResult
	balanceErr error
	reference  string
}

func (f *fakeSupplier) PlaceOrder(_ context.Context, params wirenet.OrderParams) (*wirenet.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCalls++
	f.requestIDs = append(f.requestIDs, params.RequestID)
	if err, ok := f.placeErr[params.PhoneNumber]; ok && err != nil {
		return nil, err
	}
	ref := f.reference
	if ref == "" {
		ref = "WN-" + params.RequestID
	}
	return &wirenet.OrderResult{Reference: ref, Status: "processing"}, nil
}

func (f *fakeSupplier) Balance(context.Context) (*wirenet.BalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if f.balance == nil {
		return &wirenet.BalanceResult{Balance: decimal.RequireFromString("1000"), Currency: "GHS"}, nil
	}
	return f.balance, nil
}

func (f *fakeSupplier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placeCalls
}

func (f *fakeSupplier) sentRequestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...)
}

func testOrder(reference, phone, amount string) models.Order {
	cost := decimal.RequireFromString(amount).Mul(decimal.RequireFromString("0.85"))
	return models.Order{
		UserID:            uuid.New(),
		ServiceType:       enums.ServiceTypeMTNUp2U,
		Amount:            decimal.RequireFromString(amount),
		CostPrice:         &cost,
		BeneficiaryPhone:  phone,
		PaymentReference:  reference,
		SupplierPackageID: "up2u-1gb",
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPendingPayment,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, supplier *fakeSupplier) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:       repo,
		Supplier:   supplier,
		Dispatcher: SyncDispatcher{},
		Logger:     logger.New(logger.Options{ServiceName: "fulfillment-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestConfirmPaymentSingleOrderDispatches(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)

	id := repo.add(testOrder("PAY_1_a", "0241000001", "10.00"))

	result, err := svc.ConfirmPayment(context.Background(), "PAY_1_a", decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if result.AlreadyProcessed {
		t.Fatalf("first confirmation must not report already processed")
	}

	order := repo.get(id)
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status: got %s", order.PaymentStatus)
	}
	// Single order goes PAID then the dispatched placement flips it.
	if order.FulfillmentStatus != enums.FulfillmentStatusProcessing {
		t.Fatalf("fulfillment status after dispatch: got %s", order.FulfillmentStatus)
	}
	if order.SupplierReference == nil {
		t.Fatalf("supplier reference not stored")
	}
	if supplier.calls() != 1 {
		t.Fatalf("expected one supplier call, got %d", supplier.calls())
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)

	repo.add(testOrder("PAY_2_b", "0241000002", "10.00"))
	amount := decimal.RequireFromString("10.00")

	if _, err := svc.ConfirmPayment(context.Background(), "PAY_2_b", amount); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	result, err := svc.ConfirmPayment(context.Background(), "PAY_2_b", amount)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if !result.AlreadyProcessed {
		t.Fatalf("replayed confirmation must report already processed")
	}
	if supplier.calls() != 1 {
		t.Fatalf("replay must not call supplier again, got %d calls", supplier.calls())
	}
}

func TestConfirmPaymentToleranceBoundary(t *testing.T) {
	// Exactly 0.05 off is rounding, not tampering.
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)
	id := repo.add(testOrder("PAY_3_c", "0241000003", "10.00"))

	if _, err := svc.ConfirmPayment(context.Background(), "PAY_3_c", decimal.RequireFromString("9.95")); err != nil {
		t.Fatalf("0.05 delta must confirm: %v", err)
	}
	if got := repo.get(id).PaymentStatus; got != enums.PaymentStatusPaid {
		t.Fatalf("expected PAID at tolerance boundary, got %s", got)
	}
}

func TestConfirmPaymentTamperFailsAllLinkedOrders(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)

	first := repo.add(testOrder("PAY_4_d", "0241000004", "10.00"))
	second := repo.add(testOrder("PAY_4_d", "0241000005", "10.00"))

	_, err := svc.ConfirmPayment(context.Background(), "PAY_4_d", decimal.RequireFromString("19.94"))
	domain := pkgerrors.As(err)
	if domain == nil || domain.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	for _, id := range []uuid.UUID{first, second} {
		order := repo.get(id)
		if order.PaymentStatus != enums.PaymentStatusFailed {
			t.Fatalf("payment status after tamper: got %s", order.PaymentStatus)
		}
		if order.FulfillmentStatus != enums.FulfillmentStatusFailed {
			t.Fatalf("fulfillment status after tamper: got %s", order.FulfillmentStatus)
		}
		if order.LastError == nil {
			t.Fatalf("tamper reason not recorded")
		}
	}
	if supplier.calls() != 0 {
		t.Fatalf("tampered payment must never reach supplier")
	}
}

func TestConfirmPaymentBulkPartialFailure(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{placeErr: map[string]error{
		"0241000007": &wirenet.SupplierError{Message: "invalid phone number"},
	}}
	svc := newTestService(t, repo, supplier)

	okID := repo.add(testOrder("PAY_5_e", "0241000006", "10.00"))
	badID := repo.add(testOrder("PAY_5_e", "0241000007", "15.00"))

	if _, err := svc.ConfirmPayment(context.Background(), "PAY_5_e", decimal.RequireFromString("25.00")); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	okOrder := repo.get(okID)
	badOrder := repo.get(badID)

	if okOrder.FulfillmentStatus != enums.FulfillmentStatusProcessing {
		t.Fatalf("successful placement: got %s", okOrder.FulfillmentStatus)
	}
	if badOrder.FulfillmentStatus != enums.FulfillmentStatusFailed {
		t.Fatalf("failed placement: got %s", badOrder.FulfillmentStatus)
	}
	// Payment settled for both: the money is real even when delivery failed.
	if badOrder.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("failed order must keep PAID payment, got %s", badOrder.PaymentStatus)
	}
	if badOrder.LastError == nil {
		t.Fatalf("failure reason not kept for retry")
	}
}

func TestConfirmPaymentUnknownReference(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeSupplier{})

	_, err := svc.ConfirmPayment(context.Background(), "PAY_missing", decimal.NewFromInt(10))
	domain := pkgerrors.As(err)
	if domain == nil || domain.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRetryRejectsNonRetryableStates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeSupplier{})

	for _, status := range []enums.FulfillmentStatus{
		enums.FulfillmentStatusPendingPayment,
		enums.FulfillmentStatusProcessing,
		enums.FulfillmentStatusFulfilled,
	} {
		order := testOrder("PAY_6_f", "0241000008", "10.00")
		order.PaymentStatus = enums.PaymentStatusPaid
		order.FulfillmentStatus = status
		id := repo.add(order)

		_, err := svc.Retry(context.Background(), id)
		domain := pkgerrors.As(err)
		if domain == nil || domain.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("status %s: expected state conflict, got %v", status, err)
		}
	}
}

func TestRetryBalancePreflightBlocksKnownShortfall(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{balance: &wirenet.BalanceResult{
		Balance: decimal.RequireFromString("1.00"), Currency: "GHS",
	}}
	svc := newTestService(t, repo, supplier)

	order := testOrder("PAY_7_g", "0241000009", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusFailed
	id := repo.add(order)

	_, err := svc.Retry(context.Background(), id)
	domain := pkgerrors.As(err)
	if domain == nil || domain.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if supplier.calls() != 0 {
		t.Fatalf("shortfall must block the supplier call")
	}
	if got := repo.get(id).FulfillmentStatus; got != enums.FulfillmentStatusFailed {
		t.Fatalf("pre-flight rejection must not move state, got %s", got)
	}
}

func TestRetryProceedsWhenBalanceUnknown(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{balanceErr: context.DeadlineExceeded}
	svc := newTestService(t, repo, supplier)

	order := testOrder("PAY_8_h", "0241000010", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusQueued
	id := repo.add(order)

	updated, err := svc.Retry(context.Background(), id)
	if err != nil {
		t.Fatalf("unknown balance must not block retry: %v", err)
	}
	if updated.FulfillmentStatus != enums.FulfillmentStatusFulfilled {
		t.Fatalf("expected FULFILLED, got %s", updated.FulfillmentStatus)
	}
	if updated.SupplierReference == nil {
		t.Fatalf("supplier reference missing after fulfillment")
	}
}

func TestRetryFailureRevertsToPaid(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{placeErr: map[string]error{
		"0241000011": &wirenet.SupplierError{Message: "Insufficient balance", InsufficientBalance: true},
	}}
	svc := newTestService(t, repo, supplier)

	order := testOrder("PAY_9_i", "0241000011", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusFailed
	id := repo.add(order)

	_, err := svc.Retry(context.Background(), id)
	domain := pkgerrors.As(err)
	if domain == nil || domain.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected classified insufficient balance, got %v", err)
	}

	reverted := repo.get(id)
	if reverted.FulfillmentStatus != enums.FulfillmentStatusPaid {
		t.Fatalf("failed retry must revert to PAID, got %s", reverted.FulfillmentStatus)
	}
	if reverted.LastError == nil {
		t.Fatalf("retry failure reason not recorded")
	}
}

func TestSupplierWebhookUnknownReferenceIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeSupplier{})

	err := svc.HandleSupplierWebhook(context.Background(), SupplierWebhookPayload{
		PaymentReference: "PAY_nobody",
		Status:           "success",
	})
	if err != nil {
		t.Fatalf("unknown reference must ack cleanly: %v", err)
	}
}

func TestSupplierWebhookStatusMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want enums.FulfillmentStatus
	}{
		{"success", enums.FulfillmentStatusFulfilled},
		{"Completed", enums.FulfillmentStatusFulfilled},
		{"FULFILLED", enums.FulfillmentStatusFulfilled},
		{"failed", enums.FulfillmentStatusFailed},
		{"cancelled", enums.FulfillmentStatusFailed},
		{"refunded", enums.FulfillmentStatusFailed},
		{"pending", enums.FulfillmentStatusProcessing},
		{"processing", enums.FulfillmentStatusProcessing},
		{"queued", enums.FulfillmentStatusProcessing},
	}

	for _, tt := range tests {
		repo := newFakeRepo()
		svc := newTestService(t, repo, &fakeSupplier{})

		order := testOrder("PAY_10_j", "0241000012", "10.00")
		order.PaymentStatus = enums.PaymentStatusPaid
		order.FulfillmentStatus = enums.FulfillmentStatusQueued
		id := repo.add(order)

		err := svc.HandleSupplierWebhook(context.Background(), SupplierWebhookPayload{
			PaymentReference:  "PAY_10_j",
			SupplierReference: "WN-777",
			Status:            tt.raw,
		})
		if err != nil {
			t.Fatalf("webhook %q: %v", tt.raw, err)
		}

		updated := repo.get(id)
		if updated.FulfillmentStatus != tt.want {
			t.Fatalf("webhook %q: expected %s got %s", tt.raw, tt.want, updated.FulfillmentStatus)
		}
		if updated.SupplierReference == nil || *updated.SupplierReference != "WN-777" {
			t.Fatalf("webhook %q: supplier reference not stored", tt.raw)
		}
	}
}

func TestSupplierRequestIDRoundTripsThroughWebhook(t *testing.T) {
	// The supplier echoes the request id back in its delivery callback, so
	// placement must send the payment reference, not the order id.
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)

	id := repo.add(testOrder("PAY_12_l", "0241000014", "10.00"))
	if _, err := svc.ConfirmPayment(context.Background(), "PAY_12_l", decimal.RequireFromString("10.00")); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	sent := supplier.sentRequestIDs()
	if len(sent) != 1 || sent[0] != "PAY_12_l" {
		t.Fatalf("placement request id: got %v, want payment reference", sent)
	}

	// Deliver the callback keyed on what the supplier actually received.
	err := svc.HandleSupplierWebhook(context.Background(), SupplierWebhookPayload{
		PaymentReference:  sent[0],
		SupplierReference: "WN-PAY_12_l",
		Status:            "completed",
	})
	if err != nil {
		t.Fatalf("supplier webhook: %v", err)
	}
	if got := repo.get(id).FulfillmentStatus; got != enums.FulfillmentStatusFulfilled {
		t.Fatalf("callback must close the order, got %s", got)
	}
}

func TestRetrySendsPaymentReferenceAsRequestID(t *testing.T) {
	repo := newFakeRepo()
	supplier := &fakeSupplier{}
	svc := newTestService(t, repo, supplier)

	order := testOrder("PAY_13_m", "0241000015", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusFailed
	id := repo.add(order)

	if _, err := svc.Retry(context.Background(), id); err != nil {
		t.Fatalf("retry: %v", err)
	}
	sent := supplier.sentRequestIDs()
	if len(sent) != 1 || sent[0] != "PAY_13_m" {
		t.Fatalf("retry request id: got %v, want payment reference", sent)
	}
}

func TestSupplierWebhookReplayWritesOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeSupplier{})

	order := testOrder("PAY_14_n", "0241000016", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusProcessing
	id := repo.add(order)

	payload := SupplierWebhookPayload{
		PaymentReference:  "PAY_14_n",
		SupplierReference: "WN-888",
		Status:            "success",
	}
	for i := 0; i < 2; i++ {
		if err := svc.HandleSupplierWebhook(context.Background(), payload); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if got := repo.forceStatusCalls(); got != 1 {
		t.Fatalf("replayed payload must write once, got %d writes", got)
	}
	if got := repo.get(id).FulfillmentStatus; got != enums.FulfillmentStatusFulfilled {
		t.Fatalf("expected FULFILLED, got %s", got)
	}
}

func TestSupplierWebhookUnknownStatusLeavesOrderUntouched(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeSupplier{})

	order := testOrder("PAY_11_k", "0241000013", "10.00")
	order.PaymentStatus = enums.PaymentStatusPaid
	order.FulfillmentStatus = enums.FulfillmentStatusProcessing
	id := repo.add(order)

	err := svc.HandleSupplierWebhook(context.Background(), SupplierWebhookPayload{
		PaymentReference: "PAY_11_k",
		Status:           "on_hold",
	})
	if err != nil {
		t.Fatalf("unknown status must ack cleanly: %v", err)
	}
	if got := repo.get(id).FulfillmentStatus; got != enums.FulfillmentStatusProcessing {
		t.Fatalf("unknown status must not change state, got %s", got)
	}
}

func TestWorkerDispatcherRunsSubmittedTasks(t *testing.T) {
	d := NewWorkerDispatcher(2, 4, logger.New(logger.Options{ServiceName: "dispatch-test", Output: io.Discard}))
	defer d.Close()

	var mu sync.Mutex
	ran := 0
	var channels []<-chan struct{}
	for i := 0; i < 5; i++ {
		channels = append(channels, d.Submit(func(ctx context.Context) {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	for _, done := range channels {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("task did not complete")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if ran != 5 {
		t.Fatalf("expected 5 tasks run, got %d", ran)
	}
}
