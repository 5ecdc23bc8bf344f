package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/yawasante/databundles-backend/api/responses"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/paystack"
)

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, body []byte) error
}

type signatureValidator interface {
	ValidateSignature(body []byte, signature string) bool
}

// PaystackWebhook receives gateway charge events. The signature covers the
// raw body, so it is validated before any decoding happens.
func PaystackWebhook(svc PaystackWebhookService, gateway signatureValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if gateway == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(paystack.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature missing"))
			return
		}
		if !gateway.ValidateSignature(body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid gateway signature"))
			return
		}

		if err := svc.HandleEvent(ctx, body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
