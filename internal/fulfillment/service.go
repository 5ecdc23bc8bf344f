package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/metrics"
	"github.com/yawasante/databundles-backend/pkg/wirenet"
)

// amountTolerance absorbs gateway subunit rounding. Anything beyond it is
// treated as tampering, not drift.
var amountTolerance = decimal.RequireFromString("0.05")

// Supplier is the slice of the wholesale client the orchestrator uses.
type Supplier interface {
	PlaceOrder(ctx context.Context, params wirenet.OrderParams) (*wirenet.OrderResult, error)
	Balance(ctx context.Context) (*wirenet.BalanceResult, error)
}

// Service drives the order state machine after a payment settles.
type Service interface {
	ConfirmPayment(ctx context.Context, reference string, amountPaid decimal.Decimal) (*ConfirmResult, error)
	Retry(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	HandleSupplierWebhook(ctx context.Context, payload SupplierWebhookPayload) error
}

// ConfirmResult reports what a payment confirmation did.
type ConfirmResult struct {
	Orders           []models.Order
	AlreadyProcessed bool
}

// SupplierWebhookPayload is the normalized supplier callback.
type SupplierWebhookPayload struct {
	PaymentReference  string
	SupplierReference string
	Status            string
}

// Params collects the orchestrator dependencies.
type Params struct {
	Repo       orders.Repository
	Supplier   Supplier
	Dispatcher Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.FulfillmentMetrics
	Now        func() time.Time
}

type service struct {
	repo       orders.Repository
	supplier   Supplier
	dispatcher Dispatcher
	logger     *logger.Logger
	metrics    *metrics.FulfillmentMetrics
	now        func() time.Time
}

// NewService builds the fulfillment orchestrator with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Supplier == nil {
		return nil, fmt.Errorf("supplier client required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		supplier:   params.Supplier,
		dispatcher: params.Dispatcher,
		logger:     params.Logger,
		metrics:    params.Metrics,
		now:        now,
	}, nil
}

// ConfirmPayment settles every order funded by the reference and hands the
// supplier placements to the dispatcher. It is safe to call any number of
// times for the same reference: only the first caller transitions state.
func (s *service) ConfirmPayment(ctx context.Context, reference string, amountPaid decimal.Decimal) (*ConfirmResult, error) {
	linked, err := s.repo.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for reference")
	}
	if len(linked) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders found for payment reference")
	}

	// Replayed confirmation: the reference already left PENDING. No writes,
	// no supplier calls.
	if linked[0].PaymentStatus != enums.PaymentStatusPending {
		return &ConfirmResult{Orders: linked, AlreadyProcessed: true}, nil
	}

	expected := decimal.Zero
	for _, order := range linked {
		expected = expected.Add(order.Amount)
	}
	if expected.Sub(amountPaid).Abs().GreaterThan(amountTolerance) {
		reason := fmt.Sprintf("amount mismatch: paid %s expected %s", amountPaid.StringFixed(2), expected.StringFixed(2))
		if _, err := s.repo.MarkFailedForReference(ctx, reference, reason); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag tampered payment")
		}
		ctx = s.logger.WithPaymentReference(ctx, reference)
		s.logger.Warn(ctx, "payment amount mismatch, orders failed")
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, reason).WithDetails(map[string]any{
			"expected": expected.StringFixed(2),
			"paid":     amountPaid.StringFixed(2),
		})
	}

	target := enums.FulfillmentStatusPaid
	if len(linked) > 1 {
		target = enums.FulfillmentStatusQueued
	}

	affected, err := s.repo.MarkPaidForReference(ctx, reference, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}
	if affected == 0 {
		// Lost the race to a concurrent confirmation; the winner dispatched.
		return &ConfirmResult{Orders: linked, AlreadyProcessed: true}, nil
	}

	confirmed, err := s.repo.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload confirmed orders")
	}

	for _, order := range confirmed {
		order := order
		s.dispatcher.Submit(func(taskCtx context.Context) {
			s.placeSupplierOrder(taskCtx, order)
		})
	}

	return &ConfirmResult{Orders: confirmed}, nil
}

// placeSupplierOrder runs on a dispatcher worker. A successful placement
// leaves the order PROCESSING with the supplier's reference; completion is
// confirmed later by the supplier webhook or the sweeper.
func (s *service) placeSupplierOrder(ctx context.Context, order models.Order) {
	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	ctx = s.logger.WithPaymentReference(ctx, order.PaymentReference)

	won, err := s.repo.UpdateFulfillmentGuarded(ctx, order.ID,
		[]enums.FulfillmentStatus{enums.FulfillmentStatusPaid, enums.FulfillmentStatusQueued},
		enums.FulfillmentStatusProcessing, nil)
	if err != nil {
		s.logger.Error(ctx, "flip order to processing", err)
		return
	}
	if !won {
		// Another worker, retry, or webhook already owns this order.
		return
	}

	result, err := s.supplier.PlaceOrder(ctx, wirenet.OrderParams{
		ServiceType: order.ServiceType,
		PackageID:   order.SupplierPackageID,
		PhoneNumber: order.BeneficiaryPhone,
		RequestID:   order.PaymentReference,
	})
	if err != nil {
		s.metrics.IncDispatch(order.ServiceType.String(), "failed")
		s.logger.Error(ctx, "supplier placement failed", err)
		s.failOrder(ctx, order.ID, err)
		return
	}

	s.metrics.IncDispatch(order.ServiceType.String(), "placed")
	updates := map[string]any{}
	if result.Reference != "" {
		updates["supplier_reference"] = result.Reference
	}
	if _, err := s.repo.UpdateFulfillmentGuarded(ctx, order.ID,
		[]enums.FulfillmentStatus{enums.FulfillmentStatusProcessing},
		enums.FulfillmentStatusProcessing, updates); err != nil {
		s.logger.Error(ctx, "store supplier reference", err)
	}
	s.logger.Info(ctx, "supplier order placed")
}

func (s *service) failOrder(ctx context.Context, orderID uuid.UUID, cause error) {
	message := cause.Error()
	if _, err := s.repo.UpdateFulfillmentGuarded(ctx, orderID,
		[]enums.FulfillmentStatus{enums.FulfillmentStatusProcessing},
		enums.FulfillmentStatusFailed,
		map[string]any{"last_error": message}); err != nil {
		s.logger.Error(ctx, "mark order failed", err)
	}
}

// Retry re-attempts supplier placement for one order, synchronously.
func (s *service) Retry(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if !order.FulfillmentStatus.IsRetryable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, retry requires PAID, QUEUED, or FAILED", order.FulfillmentStatus))
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	// Balance pre-flight: only block when the cost is known AND the balance
	// was actually fetched AND it falls short. A failed fetch means unknown,
	// which must never be treated as zero.
	if order.CostPrice != nil {
		balance, balanceErr := s.supplier.Balance(ctx)
		if balanceErr != nil {
			s.logger.Warn(ctx, "balance pre-flight unavailable, proceeding")
		} else if balance.Balance.LessThan(*order.CostPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "supplier balance below order cost").
				WithDetails(map[string]any{
					"balance": balance.Balance.StringFixed(2),
					"cost":    order.CostPrice.StringFixed(2),
				})
		}
	}

	won, err := s.repo.UpdateFulfillmentGuarded(ctx, order.ID,
		[]enums.FulfillmentStatus{
			enums.FulfillmentStatusPaid,
			enums.FulfillmentStatusQueued,
			enums.FulfillmentStatusFailed,
		},
		enums.FulfillmentStatusProcessing, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flip order to processing")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already being processed")
	}

	result, err := s.supplier.PlaceOrder(ctx, wirenet.OrderParams{
		ServiceType: order.ServiceType,
		PackageID:   order.SupplierPackageID,
		PhoneNumber: order.BeneficiaryPhone,
		RequestID:   order.PaymentReference,
	})
	if err != nil {
		s.metrics.IncDispatch(order.ServiceType.String(), "retry_failed")
		return nil, s.revertRetry(ctx, order.ID, err)
	}

	s.metrics.IncDispatch(order.ServiceType.String(), "retry_fulfilled")
	updates := map[string]any{}
	if result.Reference != "" {
		updates["supplier_reference"] = result.Reference
	}
	if _, err := s.repo.UpdateFulfillmentGuarded(ctx, order.ID,
		[]enums.FulfillmentStatus{enums.FulfillmentStatusProcessing},
		enums.FulfillmentStatusFulfilled, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order fulfilled")
	}

	refreshed, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	s.logger.Info(ctx, "order retry fulfilled")
	return refreshed, nil
}

// revertRetry puts a failed retry back to PAID so the order stays retryable,
// then surfaces a classified error.
func (s *service) revertRetry(ctx context.Context, orderID uuid.UUID, cause error) error {
	if _, revertErr := s.repo.UpdateFulfillmentGuarded(ctx, orderID,
		[]enums.FulfillmentStatus{enums.FulfillmentStatusProcessing},
		enums.FulfillmentStatusPaid,
		map[string]any{"last_error": cause.Error()}); revertErr != nil {
		s.logger.Error(ctx, "revert order to paid", revertErr)
	}

	var supplierErr *wirenet.SupplierError
	if errors.As(cause, &supplierErr) && supplierErr.InsufficientBalance {
		details := map[string]any{}
		if balance, err := s.supplier.Balance(ctx); err == nil {
			details["balance"] = balance.Balance.StringFixed(2)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientBalance, cause, "supplier balance exhausted").
			WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeSupplier, cause, "supplier rejected retry")
}

// HandleSupplierWebhook applies a supplier-reported delivery status. Unknown
// references and unknown statuses are acknowledged without action.
func (s *service) HandleSupplierWebhook(ctx context.Context, payload SupplierWebhookPayload) error {
	linked, err := s.repo.FindByPaymentReference(ctx, payload.PaymentReference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for webhook")
	}
	if len(linked) == 0 {
		ctx = s.logger.WithPaymentReference(ctx, payload.PaymentReference)
		s.logger.Warn(ctx, "supplier webhook for unknown reference")
		return nil
	}

	mapped, ok := MapSupplierStatus(payload.Status)
	if !ok {
		ctx = s.logger.WithPaymentReference(ctx, payload.PaymentReference)
		s.logger.Warn(ctx, "supplier webhook with unrecognized status")
		return nil
	}

	for _, order := range linked {
		sameStatus := order.FulfillmentStatus == mapped
		sameRef := payload.SupplierReference == "" ||
			(order.SupplierReference != nil && *order.SupplierReference == payload.SupplierReference)
		if sameStatus && sameRef {
			continue
		}

		updates := map[string]any{"fulfillment_status": mapped}
		if payload.SupplierReference != "" {
			updates["supplier_reference"] = payload.SupplierReference
		}
		if err := s.repo.ForceStatus(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply supplier status")
		}
	}
	return nil
}
