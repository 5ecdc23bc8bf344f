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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateBatch(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).Create(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, reference string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", reference).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*List, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.list(query, params, filters)
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	return r.list(query, params, filters)
}

func (r *repository) list(query *gorm.DB, params pagination.Params, filters Filters) (*List, error) {
	query = applyFilters(query, filters)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Order
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &List{}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, toSummary(row))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.FulfillmentStatus != nil {
		query = query.Where("fulfillment_status = ?", *filters.FulfillmentStatus)
	}
	if filters.ServiceType != nil {
		query = query.Where("service_type = ?", *filters.ServiceType)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("payment_reference LIKE ? OR beneficiary_phone LIKE ?", like, like)
	}
	return query
}

func toSummary(order models.Order) Summary {
	return Summary{
		ID:                order.ID,
		UserID:            order.UserID,
		ServiceType:       order.ServiceType,
		Amount:            order.Amount.StringFixed(2),
		BeneficiaryPhone:  order.BeneficiaryPhone,
		PaymentReference:  order.PaymentReference,
		SupplierReference: order.SupplierReference,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		CreatedAt:         order.CreatedAt,
	}
}

func (r *repository) MarkPaidForReference(ctx context.Context, reference string, fulfillment enums.FulfillmentStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_reference = ? AND payment_status = ?", reference, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status":     enums.PaymentStatusPaid,
			"fulfillment_status": fulfillment,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkFailedForReference(ctx context.Context, reference string, lastError string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_reference = ? AND payment_status = ?", reference, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status":     enums.PaymentStatusFailed,
			"fulfillment_status": enums.FulfillmentStatusFailed,
			"last_error":         lastError,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateFulfillmentGuarded(ctx context.Context, id uuid.UUID, from []enums.FulfillmentStatus, to enums.FulfillmentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"fulfillment_status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND fulfillment_status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateStuckGuarded(ctx context.Context, id uuid.UUID, seenUpdatedAt time.Time, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where(
			"id = ? AND fulfillment_status IN ? AND updated_at = ?",
			id, inFlightStatuses(), seenUpdatedAt,
		).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindStuckBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("fulfillment_status IN ? AND updated_at < ?", inFlightStatuses(), cutoff).
		Order("updated_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) CountStuckBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("fulfillment_status IN ? AND updated_at < ?", inFlightStatuses(), cutoff).
		Count(&count).Error
	return count, err
}

func (r *repository) ForceStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func inFlightStatuses() []enums.FulfillmentStatus {
	return []enums.FulfillmentStatus{
		enums.FulfillmentStatusQueued,
		enums.FulfillmentStatusProcessing,
	}
}
