package cron

import (
	"context"
	"fmt"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

// sweepRunner is the slice of the sweeper the job depends on.
type sweepRunner interface {
	Sweep(ctx context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error)
}

// ReconcileJobParams configure the stuck-order reconciliation job.
type ReconcileJobParams struct {
	Logger  *logger.Logger
	Sweeper sweepRunner
	Policy  config.SweeperConfig
}

// NewReconcileJob builds the cron job that reconciles stuck orders.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	if params.Policy.StuckAfter <= 0 {
		return nil, fmt.Errorf("stuck-after window must be positive")
	}
	return &reconcileJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		policy:  params.Policy,
	}, nil
}

type reconcileJob struct {
	logg    *logger.Logger
	sweeper sweepRunner
	policy  config.SweeperConfig
}

func (j *reconcileJob) Name() string { return "order-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx, fulfillment.SweepPolicy{
		StuckAfter:       j.policy.StuckAfter,
		AutoFulfillAfter: j.policy.AutoFulfillAfter,
	})
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"processed":      result.Processed,
			"flagged":        result.Flagged,
			"auto_fulfilled": result.AutoFulfilled,
			"errors":         result.Errors,
		})
		j.logg.Info(logCtx, "reconcile sweep complete")
	}
	if err != nil {
		return fmt.Errorf("reconcile sweep: %w", err)
	}
	return nil
}
