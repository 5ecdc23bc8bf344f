package controllers

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/api/validators"
	"github.com/yawasante/databundles-backend/internal/fulfillment"
	internalorders "github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/pagination"
	"github.com/yawasante/databundles-backend/pkg/wirenet"
)

type adminOrderRepository interface {
	ListAll(ctx context.Context, params pagination.Params, filters internalorders.Filters) (*internalorders.List, error)
	ForceStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type orderSweeper interface {
	Sweep(ctx context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error)
	StuckCount(ctx context.Context, stuckAfter time.Duration) (int64, error)
}

type supplierReader interface {
	Balance(ctx context.Context) (*wirenet.BalanceResult, error)
	ListCatalog(ctx context.Context) iter.Seq2[wirenet.CatalogItem, error]
}

// AdminListOrders returns a filtered, cursor-paginated list of all orders.
func AdminListOrders(repo adminOrderRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := orderFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := repo.ListAll(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type forceStatusRequest struct {
	FulfillmentStatus string  `json:"fulfillment_status" validate:"required"`
	PaymentStatus     *string `json:"payment_status" validate:"omitempty"`
	SupplierReference *string `json:"supplier_reference" validate:"omitempty,max=128"`
}

// AdminForceOrderStatus overrides an order's status axes without guards.
// It exists for operator correction after manual reconciliation.
func AdminForceOrderStatus(repo adminOrderRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req forceStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseFulfillmentStatus(req.FulfillmentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment status"))
			return
		}
		updates := map[string]any{"fulfillment_status": status}

		if req.PaymentStatus != nil {
			payment, err := enums.ParsePaymentStatus(*req.PaymentStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
				return
			}
			updates["payment_status"] = payment
		}
		if req.SupplierReference != nil {
			updates["supplier_reference"] = validators.SanitizeString(*req.SupplierReference, 128)
		}

		if err := repo.ForceStatus(r.Context(), orderID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "force order status"))
			return
		}

		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), orderID.String())
			ctx = logg.WithField(ctx, "forced_status", status.String())
			logg.Info(ctx, "order status forced")
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// AdminRetryOrder replays a failed or stalled supplier placement.
func AdminRetryOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Retry(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminTriggerSweep runs a reconciliation pass on demand.
func AdminTriggerSweep(sweeper orderSweeper, cfg config.SweeperConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweeper unavailable"))
			return
		}

		result, err := sweeper.Sweep(r.Context(), fulfillment.SweepPolicy{
			StuckAfter:       cfg.StuckAfter,
			AutoFulfillAfter: cfg.AutoFulfillAfter,
		})
		if err != nil {
			if result == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run sweep"))
				return
			}
			// Some stamps failed but the pass ran; the operator still gets
			// the counts, errors included.
			logg.Error(r.Context(), "sweep completed with errors", err)
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminStuckOrders reports how many orders are stuck in flight.
func AdminStuckOrders(sweeper orderSweeper, cfg config.SweeperConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweeper unavailable"))
			return
		}

		count, err := sweeper.StuckCount(r.Context(), cfg.StuckAfter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stuck orders"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"stuck_orders": count,
			"stuck_after":  cfg.StuckAfter.String(),
		})
	}
}

// AdminSupplierBalance surfaces the supplier wallet balance.
func AdminSupplierBalance(supplier supplierReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if supplier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier client unavailable"))
			return
		}

		balance, err := supplier.Balance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// AdminSupplierCatalog lists the packages currently offered upstream.
func AdminSupplierCatalog(supplier supplierReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if supplier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier client unavailable"))
			return
		}

		items := []wirenet.CatalogItem{}
		for item, err := range supplier.ListCatalog(r.Context()) {
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			items = append(items, item)
		}
		responses.WriteSuccess(w, map[string]any{"packages": items})
	}
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
