package wirenetwebhook

import (
	"context"
	"encoding/json"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

// OrderUpdatePayload is the supplier delivery callback. The supplier keys
// callbacks on our payment reference and reports its own order id alongside.
type OrderUpdatePayload struct {
	Reference         string `json:"reference"`
	SupplierReference string `json:"order_id"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// SettingsUpdatePayload signals a catalog or availability change upstream.
type SettingsUpdatePayload struct {
	Event string `json:"event"`
}

type supplierWebhookHandler interface {
	HandleSupplierWebhook(ctx context.Context, payload fulfillment.SupplierWebhookPayload) error
}

type toggleRefresher interface {
	Refresh(ctx context.Context) error
}

type ServiceParams struct {
	Fulfillment supplierWebhookHandler
	Toggles     toggleRefresher
	Logger      *logger.Logger
}

type Service struct {
	fulfillment supplierWebhookHandler
	toggles     toggleRefresher
	logger      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.Toggles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "toggle snapshot required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		fulfillment: params.Fulfillment,
		toggles:     params.Toggles,
		logger:      params.Logger,
	}, nil
}

// HandleOrderUpdate applies a supplier delivery callback to the referenced
// orders. Unknown references and statuses are acknowledged without changes.
func (s *Service) HandleOrderUpdate(ctx context.Context, body []byte) error {
	var payload OrderUpdatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode supplier callback")
	}
	if payload.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier callback missing reference")
	}

	ctx = s.logger.WithPaymentReference(ctx, payload.Reference)
	ctx = s.logger.WithField(ctx, "supplier_status", payload.Status)
	s.logger.Info(ctx, "supplier callback received")

	return s.fulfillment.HandleSupplierWebhook(ctx, fulfillment.SupplierWebhookPayload{
		PaymentReference:  payload.Reference,
		SupplierReference: payload.SupplierReference,
		Status:            payload.Status,
	})
}

// HandleSettingsUpdate reloads the service toggle snapshot after the
// supplier reports a catalog or availability change.
func (s *Service) HandleSettingsUpdate(ctx context.Context, body []byte) error {
	var payload SettingsUpdatePayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode settings callback")
		}
	}
	if payload.Event != "" {
		ctx = s.logger.WithField(ctx, "event", payload.Event)
	}
	if err := s.toggles.Refresh(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh service toggles")
	}
	s.logger.Info(ctx, "service toggles refreshed")
	return nil
}
