package cron

import (
	"context"
	"fmt"

	"github.com/yawasante/databundles-backend/pkg/logger"
)

// toggleRefresher is the slice of the catalog snapshot the job depends on.
type toggleRefresher interface {
	Refresh(ctx context.Context) error
}

// NewToggleRefreshJob builds the job that reloads carrier toggles so a
// missed settings webhook only delays, never loses, a toggle change.
func NewToggleRefreshJob(logg *logger.Logger, toggles toggleRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if toggles == nil {
		return nil, fmt.Errorf("toggle snapshot required")
	}
	return &toggleRefreshJob{logg: logg, toggles: toggles}, nil
}

type toggleRefreshJob struct {
	logg    *logger.Logger
	toggles toggleRefresher
}

func (j *toggleRefreshJob) Name() string { return "toggle-refresh" }

func (j *toggleRefreshJob) Run(ctx context.Context) error {
	if err := j.toggles.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh carrier toggles: %w", err)
	}
	j.logg.Info(ctx, "carrier toggles refreshed")
	return nil
}
