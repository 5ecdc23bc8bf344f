package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/internal/catalog"
	"github.com/yawasante/databundles-backend/internal/fulfillment"
	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/pagination"
	"github.com/yawasante/databundles-backend/pkg/paystack"
)

// Gateway is the slice of the payment client the purchase flow uses.
type Gateway interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Service owns order creation and the client-side payment return trip.
type Service interface {
	Init(ctx context.Context, input InitInput) (*CheckoutHandle, error)
	InitBulk(ctx context.Context, input BulkInitInput) (*CheckoutHandle, error)
	Verify(ctx context.Context, reference string) (*fulfillment.ConfirmResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters orders.Filters) (*orders.List, error)
}

// InitInput starts a single-bundle purchase.
type InitInput struct {
	UserID           uuid.UUID
	Email            string
	PackageID        string
	BeneficiaryPhone string
	CallbackURL      string
}

// BulkItem is one line of a bulk purchase.
type BulkItem struct {
	PackageID        string
	BeneficiaryPhone string
}

// BulkInitInput starts a multi-bundle purchase funded by one payment.
type BulkInitInput struct {
	UserID      uuid.UUID
	Email       string
	Items       []BulkItem
	CallbackURL string
}

// CheckoutHandle is what the client needs to complete payment.
type CheckoutHandle struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code"`
	Amount           decimal.Decimal `json:"amount"`
	OrderCount       int             `json:"order_count"`
}

// Params collects the purchase service dependencies.
type Params struct {
	Orders      orders.Repository
	Catalog     catalog.Repository
	Toggles     *catalog.ToggleSnapshot
	Gateway     Gateway
	Fulfillment fulfillment.Service
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	orders      orders.Repository
	catalog     catalog.Repository
	toggles     *catalog.ToggleSnapshot
	gateway     Gateway
	fulfillment fulfillment.Service
	logger      *logger.Logger
	now         func() time.Time
}

// NewService builds the purchase service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Toggles == nil {
		return nil, fmt.Errorf("toggle snapshot required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:      params.Orders,
		catalog:     params.Catalog,
		toggles:     params.Toggles,
		gateway:     params.Gateway,
		fulfillment: params.Fulfillment,
		logger:      params.Logger,
		now:         now,
	}, nil
}

// newPaymentReference builds the platform-generated idempotency key that
// links orders to their payment.
func (s *service) newPaymentReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("PAY_%d_%s", s.now().UTC().UnixMilli(), suffix)
}

func (s *service) Init(ctx context.Context, input InitInput) (*CheckoutHandle, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.BeneficiaryPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary phone required")
	}

	product, err := s.loadSellableProduct(ctx, input.PackageID)
	if err != nil {
		return nil, err
	}

	reference := s.newPaymentReference()
	order := &models.Order{
		UserID:            input.UserID,
		ServiceType:       product.ServiceType,
		Amount:            product.Price,
		CostPrice:         product.CostPrice,
		BeneficiaryPhone:  strings.TrimSpace(input.BeneficiaryPhone),
		PaymentReference:  reference,
		SupplierPackageID: product.SupplierPackageID,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPendingPayment,
	}
	if _, err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	return s.initializeCheckout(ctx, input.Email, input.CallbackURL, reference, product.Price, 1)
}

func (s *service) InitBulk(ctx context.Context, input BulkInitInput) (*CheckoutHandle, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	reference := s.newPaymentReference()
	total := decimal.Zero
	var batch []models.Order

	for _, item := range input.Items {
		if strings.TrimSpace(item.BeneficiaryPhone) == "" {
			continue
		}
		product, err := s.loadSellableProduct(ctx, item.PackageID)
		if err != nil {
			// Unknown or disabled lines are skipped, not fatal: the rest of
			// the batch still sells.
			ctx := s.logger.WithField(ctx, "package_id", item.PackageID)
			s.logger.Warn(ctx, "bulk item skipped")
			continue
		}
		batch = append(batch, models.Order{
			UserID:            input.UserID,
			ServiceType:       product.ServiceType,
			Amount:            product.Price,
			CostPrice:         product.CostPrice,
			BeneficiaryPhone:  strings.TrimSpace(item.BeneficiaryPhone),
			PaymentReference:  reference,
			SupplierPackageID: product.SupplierPackageID,
			PaymentStatus:     enums.PaymentStatusPending,
			FulfillmentStatus: enums.FulfillmentStatusPendingPayment,
		})
		total = total.Add(product.Price)
	}

	if len(batch) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no sellable items in batch")
	}

	if _, err := s.orders.CreateBatch(ctx, batch); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bulk orders")
	}

	return s.initializeCheckout(ctx, input.Email, input.CallbackURL, reference, total, len(batch))
}

func (s *service) loadSellableProduct(ctx context.Context, packageID string) (*models.Product, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}

	product, err := s.catalog.FindActiveProductByPackageID(ctx, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !s.toggles.IsEnabled(product.ServiceType) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("%s purchases are currently disabled", product.ServiceType))
	}
	return product, nil
}

// initializeCheckout calls the gateway. When it fails the created orders
// stay PENDING_PAYMENT; nothing was paid and nothing needs unwinding.
func (s *service) initializeCheckout(ctx context.Context, email, callbackURL, reference string, amount decimal.Decimal, count int) (*CheckoutHandle, error) {
	session, err := s.gateway.Initialize(ctx, paystack.InitializeParams{
		Email:       email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: callbackURL,
		Metadata:    map[string]any{"order_count": count},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithPaymentReference(ctx, reference)
	s.logger.Info(ctx, "checkout session created")

	return &CheckoutHandle{
		Reference:        session.Reference,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Amount:           amount,
		OrderCount:       count,
	}, nil
}

// Verify is the client return trip after checkout: ask the gateway what
// really happened, and on success run payment confirmation with the
// gateway-reported amount, never the client's.
func (s *service) Verify(ctx context.Context, reference string) (*fulfillment.ConfirmResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment not settled: gateway reports %q", result.Status))
	}

	return s.fulfillment.ConfirmPayment(ctx, reference, result.AmountValue())
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters orders.Filters) (*orders.List, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.orders.ListForUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}
