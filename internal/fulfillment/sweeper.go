package fulfillment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/enums"
	"github.com/yawasante/databundles-backend/pkg/logger"
	"github.com/yawasante/databundles-backend/pkg/metrics"
)

// SweepPolicy tunes one reconciliation pass. AutoFulfillAfter of zero
// disables auto-fulfillment; stuck orders are then only flagged.
type SweepPolicy struct {
	StuckAfter       time.Duration
	AutoFulfillAfter time.Duration
}

// SweepResult summarizes one reconciliation pass. Errors counts stamps that
// failed; the pass keeps going past them, so a partial result is still
// meaningful.
type SweepResult struct {
	Processed     int
	Flagged       int
	AutoFulfilled int
	Errors        int
}

// Sweeper reconciles orders whose supplier outcome never arrived. It reads
// and stamps the database only; it never contacts the supplier, because a
// stuck order usually means the supplier already has the money.
type Sweeper struct {
	repo    orders.Repository
	logger  *logger.Logger
	metrics *metrics.FulfillmentMetrics
	now     func() time.Time
}

// NewSweeper builds a sweeper with the required dependencies.
func NewSweeper(repo orders.Repository, logg *logger.Logger, m *metrics.FulfillmentMetrics, now func() time.Time) (*Sweeper, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{repo: repo, logger: logg, metrics: m, now: now}, nil
}

// Sweep selects in-flight orders older than StuckAfter and either flags them
// or, past AutoFulfillAfter, stamps them fulfilled with a synthetic supplier
// reference. The auto-fulfill boundary is inclusive: an order aged exactly
// AutoFulfillAfter is fulfilled. Each stamp is guarded on the row's
// updated_at, so a webhook landing mid-sweep wins.
func (s *Sweeper) Sweep(ctx context.Context, policy SweepPolicy) (*SweepResult, error) {
	now := s.now().UTC()
	cutoff := now.Add(-policy.StuckAfter)

	stuck, err := s.repo.FindStuckBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select stuck orders: %w", err)
	}

	result := &SweepResult{Processed: len(stuck)}
	s.metrics.SetStuckOrders(int64(len(stuck)))

	var errs error
	for _, order := range stuck {
		orderCtx := s.logger.WithOrderID(ctx, order.ID.String())
		age := now.Sub(order.UpdatedAt)

		autoFulfill := policy.AutoFulfillAfter > 0 && age >= policy.AutoFulfillAfter
		if !autoFulfill {
			result.Flagged++
			s.logger.Warn(orderCtx, "order stuck in-flight, awaiting supplier outcome")
			continue
		}

		syntheticRef := fmt.Sprintf("AUTO_FULFILLED_%d", now.Unix())
		won, err := s.repo.UpdateStuckGuarded(orderCtx, order.ID, order.UpdatedAt, map[string]any{
			"fulfillment_status": enums.FulfillmentStatusFulfilled,
			"supplier_reference": syntheticRef,
		})
		if err != nil {
			result.Errors++
			errs = multierr.Append(errs, fmt.Errorf("auto-fulfill order %s: %w", order.ID, err))
			continue
		}
		if !won {
			// The row moved since selection; whoever moved it knows more.
			continue
		}
		result.AutoFulfilled++
		s.logger.Info(orderCtx, "order auto-fulfilled after prolonged processing")
	}

	return result, errs
}

// StuckCount reports how many in-flight orders have aged past stuckAfter.
func (s *Sweeper) StuckCount(ctx context.Context, stuckAfter time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-stuckAfter)
	count, err := s.repo.CountStuckBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("count stuck orders: %w", err)
	}
	s.metrics.SetStuckOrders(count)
	return count, nil
}
