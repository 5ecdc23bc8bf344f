package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	"github.com/yawasante/databundles-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table.
//
// The Mark*/guarded methods express single-statement compare-and-swap
// updates: the WHERE clause carries the expected prior state, and the
// returned count tells the caller whether it won the transition. They are
// the only way order status moves.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateBatch(ctx context.Context, orders []models.Order) ([]models.Order, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) ([]models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*List, error)
	ListAll(ctx context.Context, params pagination.Params, filters Filters) (*List, error)

	// MarkPaidForReference flips every PENDING-payment order under the
	// reference to PAID with the given fulfillment target. Returns the
	// number of rows transitioned; zero means another caller already won.
	MarkPaidForReference(ctx context.Context, reference string, fulfillment enums.FulfillmentStatus) (int64, error)

	// MarkFailedForReference stamps a tampered/declined payment across the
	// reference, both axes FAILED, only while payment is still PENDING.
	MarkFailedForReference(ctx context.Context, reference string, lastError string) (int64, error)

	// UpdateFulfillmentGuarded moves one order from any of the expected
	// statuses into the target, applying extra column updates atomically.
	UpdateFulfillmentGuarded(ctx context.Context, id uuid.UUID, from []enums.FulfillmentStatus, to enums.FulfillmentStatus, updates map[string]any) (bool, error)

	// UpdateStuckGuarded is the sweeper's stamp: it additionally requires
	// updated_at to be unchanged since the row was selected, so a
	// concurrent webhook write wins over a stale sweep.
	UpdateStuckGuarded(ctx context.Context, id uuid.UUID, seenUpdatedAt time.Time, updates map[string]any) (bool, error)

	FindStuckBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	CountStuckBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ForceStatus is the operator override; no state guard.
	ForceStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
