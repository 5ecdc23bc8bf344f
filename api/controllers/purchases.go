package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yawasante/databundles-backend/api/middleware"
	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/api/validators"
	"github.com/yawasante/databundles-backend/internal/purchases"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/pagination"
)

type initPurchaseRequest struct {
	PackageID        string `json:"package_id" validate:"required"`
	BeneficiaryPhone string `json:"beneficiary_phone" validate:"required,min=10,max=15"`
	Email            string `json:"email" validate:"required,email"`
	CallbackURL      string `json:"callback_url" validate:"omitempty,url"`
}

type bulkPurchaseItem struct {
	PackageID        string `json:"package_id" validate:"required"`
	BeneficiaryPhone string `json:"beneficiary_phone" validate:"required,min=10,max=15"`
}

type bulkPurchaseRequest struct {
	Items       []bulkPurchaseItem `json:"items" validate:"required,min=1,max=50,dive"`
	Email       string             `json:"email" validate:"required,email"`
	CallbackURL string             `json:"callback_url" validate:"omitempty,url"`
}

// InitPurchase creates a pending order and returns the gateway checkout handle.
func InitPurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req initPurchaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, err := svc.Init(r.Context(), purchases.InitInput{
			UserID:           userID,
			Email:            strings.ToLower(validators.SanitizeString(req.Email, 254)),
			PackageID:        validators.SanitizeString(req.PackageID, 64),
			BeneficiaryPhone: validators.SanitizeString(req.BeneficiaryPhone, 15),
			CallbackURL:      validators.SanitizeString(req.CallbackURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, handle)
	}
}

// InitBulkPurchase creates a batch of orders funded by one payment.
func InitBulkPurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkPurchaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]purchases.BulkItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, purchases.BulkItem{
				PackageID:        validators.SanitizeString(item.PackageID, 64),
				BeneficiaryPhone: validators.SanitizeString(item.BeneficiaryPhone, 15),
			})
		}

		handle, err := svc.InitBulk(r.Context(), purchases.BulkInitInput{
			UserID:      userID,
			Email:       strings.ToLower(validators.SanitizeString(req.Email, 254)),
			Items:       items,
			CallbackURL: validators.SanitizeString(req.CallbackURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, handle)
	}
}

// VerifyPurchase settles a payment by reference after the client returns
// from the gateway checkout.
func VerifyPurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := validators.SanitizeString(r.URL.Query().Get("reference"), 128)
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required"))
			return
		}

		result, err := svc.Verify(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":            result.Orders,
			"already_processed": result.AlreadyProcessed,
		})
	}
}

// MyOrders lists the caller's orders, newest first.
func MyOrders(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

		list, err := svc.ListForUser(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
