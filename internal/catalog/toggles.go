package catalog

import (
	"context"
	"sync/atomic"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// toggleView is one immutable generation of carrier enablement flags.
// Purchase paths read whichever generation was current when they started;
// a refresh swaps in a full replacement rather than mutating in place.
type toggleView struct {
	version int64
	enabled map[enums.ServiceType]bool
}

// ToggleSnapshot holds the current carrier enablement view. Reads are
// lock-free; Refresh is the only writer.
type ToggleSnapshot struct {
	current atomic.Pointer[toggleView]
	repo    Repository
}

// NewToggleSnapshot seeds a snapshot where every known carrier is enabled.
func NewToggleSnapshot(repo Repository) *ToggleSnapshot {
	s := &ToggleSnapshot{repo: repo}
	enabled := make(map[enums.ServiceType]bool, len(enums.ServiceTypes()))
	for _, serviceType := range enums.ServiceTypes() {
		enabled[serviceType] = true
	}
	s.current.Store(&toggleView{version: 0, enabled: enabled})
	return s
}

// IsEnabled reports whether orders may be placed for the carrier.
// Carriers missing from the snapshot are treated as disabled.
func (s *ToggleSnapshot) IsEnabled(serviceType enums.ServiceType) bool {
	view := s.current.Load()
	return view.enabled[serviceType]
}

// Version returns the generation counter of the current view.
func (s *ToggleSnapshot) Version() int64 {
	return s.current.Load().version
}

// Refresh reloads the toggles from the database and swaps in a new
// generation. In-flight readers keep their old view until they finish.
func (s *ToggleSnapshot) Refresh(ctx context.Context) error {
	toggles, err := s.repo.ListToggles(ctx)
	if err != nil {
		return err
	}

	enabled := make(map[enums.ServiceType]bool, len(toggles))
	for _, toggle := range toggles {
		enabled[toggle.ServiceType] = toggle.Enabled
	}

	prev := s.current.Load()
	s.current.Store(&toggleView{
		version: prev.version + 1,
		enabled: enabled,
	})
	return nil
}
