package wirenetwebhook

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

type fakeHandler struct {
	calls   int
	last    fulfillment.SupplierWebhookPayload
	handErr error
}

func (f *fakeHandler) HandleSupplierWebhook(_ context.Context, payload fulfillment.SupplierWebhookPayload) error {
	f.calls++
	f.last = payload
	return f.handErr
}

type fakeToggles struct {
	refreshed  int
	refreshErr error
}

func (f *fakeToggles) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func newTestService(t *testing.T, handler *fakeHandler, toggles *fakeToggles) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Fulfillment: handler, Toggles: toggles, Logger: logg})
	require.NoError(t, err)
	return svc
}

func TestHandleOrderUpdateForwardsPayload(t *testing.T) {
	handler := &fakeHandler{}
	svc := newTestService(t, handler, &fakeToggles{})

	body := []byte(`{"reference":"PAY_42","order_id":"WN-1001","status":"completed","message":"delivered"}`)
	require.NoError(t, svc.HandleOrderUpdate(context.Background(), body))

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, "PAY_42", handler.last.PaymentReference)
	assert.Equal(t, "WN-1001", handler.last.SupplierReference)
	assert.Equal(t, "completed", handler.last.Status)
}

func TestHandleOrderUpdateRequiresReference(t *testing.T) {
	handler := &fakeHandler{}
	svc := newTestService(t, handler, &fakeToggles{})

	require.Error(t, svc.HandleOrderUpdate(context.Background(), []byte(`{"status":"completed"}`)))
	require.Error(t, svc.HandleOrderUpdate(context.Background(), []byte("{")))
	assert.Zero(t, handler.calls)
}

func TestHandleSettingsUpdateRefreshesToggles(t *testing.T) {
	toggles := &fakeToggles{}
	svc := newTestService(t, &fakeHandler{}, toggles)

	require.NoError(t, svc.HandleSettingsUpdate(context.Background(), []byte(`{"event":"catalog.updated"}`)))
	require.NoError(t, svc.HandleSettingsUpdate(context.Background(), nil))
	assert.Equal(t, 2, toggles.refreshed)
}

func TestHandleSettingsUpdateSurfacesRefreshFailure(t *testing.T) {
	toggles := &fakeToggles{refreshErr: errors.New("db down")}
	svc := newTestService(t, &fakeHandler{}, toggles)

	require.Error(t, svc.HandleSettingsUpdate(context.Background(), []byte(`{}`)))
}
