package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yawasante/databundles-backend/internal/fulfillment"
	"github.com/yawasante/databundles-backend/pkg/config"
)

type fakeSweeper struct {
	policy fulfillment.SweepPolicy
	result *fulfillment.SweepResult
	err    error
	runs   int
}

func (f *fakeSweeper) Sweep(_ context.Context, policy fulfillment.SweepPolicy) (*fulfillment.SweepResult, error) {
	f.runs++
	f.policy = policy
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &fulfillment.SweepResult{}, nil
	}
	return f.result, nil
}

func TestReconcileJobForwardsPolicy(t *testing.T) {
	sweeper := &fakeSweeper{result: &fulfillment.SweepResult{Processed: 3, Flagged: 2, AutoFulfilled: 1}}
	job, err := NewReconcileJob(ReconcileJobParams{
		Logger:  testLog(),
		Sweeper: sweeper,
		Policy: config.SweeperConfig{
			StuckAfter:       30 * time.Minute,
			AutoFulfillAfter: 2 * time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.runs != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.runs)
	}
	if sweeper.policy.StuckAfter != 30*time.Minute || sweeper.policy.AutoFulfillAfter != 2*time.Hour {
		t.Fatalf("policy not forwarded: %+v", sweeper.policy)
	}
}

func TestReconcileJobSurfacesSweepError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db gone")}
	job, err := NewReconcileJob(ReconcileJobParams{
		Logger:  testLog(),
		Sweeper: sweeper,
		Policy:  config.SweeperConfig{StuckAfter: time.Hour},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error from failed sweep")
	}
}

func TestReconcileJobRequiresPositiveWindow(t *testing.T) {
	_, err := NewReconcileJob(ReconcileJobParams{
		Logger:  testLog(),
		Sweeper: &fakeSweeper{},
		Policy:  config.SweeperConfig{},
	})
	if err == nil {
		t.Fatalf("expected constructor rejection")
	}
}
