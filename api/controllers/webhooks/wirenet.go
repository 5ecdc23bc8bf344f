package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

type WirenetWebhookService interface {
	HandleOrderUpdate(ctx context.Context, body []byte) error
	HandleSettingsUpdate(ctx context.Context, body []byte) error
}

// WirenetOrderWebhook receives supplier delivery callbacks. The supplier
// retries on non-2xx and cannot be asked to replay selectively, so internal
// failures are logged and the callback is always acknowledged.
func WirenetOrderWebhook(svc WirenetWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "read supplier callback body", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "received"})
			return
		}

		if svc != nil {
			if err := svc.HandleOrderUpdate(ctx, body); err != nil && logg != nil {
				logg.Error(ctx, "handle supplier callback", err)
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

// WirenetSettingsWebhook receives supplier catalog/availability change
// notices. Same always-ack contract as the order callback.
func WirenetSettingsWebhook(svc WirenetWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "read supplier settings body", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "received"})
			return
		}

		if svc != nil {
			if err := svc.HandleSettingsUpdate(ctx, body); err != nil && logg != nil {
				logg.Error(ctx, "handle supplier settings", err)
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}
