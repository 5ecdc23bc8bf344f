package paystackwebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

const (
	// EventChargeSuccess is the only gateway event that moves orders.
	EventChargeSuccess = "charge.success"

	subunitFactor = 100
)

// Event is the gateway webhook envelope. Data carries the transaction
// snapshot for charge events.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Currency  string `json:"currency"`
}

type confirmer interface {
	ConfirmPayment(ctx context.Context, reference string, amountPaid decimal.Decimal) (*fulfillment.ConfirmResult, error)
}

type ServiceParams struct {
	Fulfillment confirmer
	Guard       *IdempotencyGuard
	Logger      *logger.Logger
}

type Service struct {
	fulfillment confirmer
	guard       *IdempotencyGuard
	logger      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		fulfillment: params.Fulfillment,
		guard:       params.Guard,
		logger:      params.Logger,
	}, nil
}

// HandleEvent processes a verified gateway webhook body. Events other than
// charge.success are acknowledged without side effects, and replayed events
// are dropped by the idempotency guard.
func (s *Service) HandleEvent(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode gateway event")
	}
	if event.Event != EventChargeSuccess {
		ctx = s.logger.WithField(ctx, "event", event.Event)
		s.logger.Info(ctx, "gateway event ignored")
		return nil
	}
	if event.Data.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway event missing payment reference")
	}

	ctx = s.logger.WithPaymentReference(ctx, event.Data.Reference)
	eventID := fmt.Sprintf("%s:%s", event.Event, event.Data.Reference)
	seen, err := s.guard.CheckAndMark(ctx, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event idempotency")
	}
	if seen {
		s.logger.Info(ctx, "gateway event replayed, skipping")
		return nil
	}

	amount := decimal.NewFromInt(event.Data.Amount).Div(decimal.NewFromInt(subunitFactor))
	if _, err := s.fulfillment.ConfirmPayment(ctx, event.Data.Reference, amount); err != nil {
		// Release the mark so the gateway retry can reprocess the event.
		if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
			s.logger.Error(ctx, "release idempotency mark", delErr)
		}
		return err
	}
	s.logger.Info(ctx, "gateway charge confirmed")
	return nil
}
