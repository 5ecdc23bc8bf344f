package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
)

// Repository defines persistence operations for products and carrier toggles.
type Repository interface {
	FindActiveProductByPackageID(ctx context.Context, supplierPackageID string) (*models.Product, error)
	ListActiveProducts(ctx context.Context, serviceType *enums.ServiceType) ([]models.Product, error)
	ListToggles(ctx context.Context) ([]models.ServiceToggle, error)
	UpsertToggle(ctx context.Context, toggle *models.ServiceToggle) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindActiveProductByPackageID(ctx context.Context, supplierPackageID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("supplier_package_id = ? AND is_active = ?", supplierPackageID, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActiveProducts(ctx context.Context, serviceType *enums.ServiceType) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if serviceType != nil {
		query = query.Where("service_type = ?", *serviceType)
	}
	var products []models.Product
	if err := query.Order("price ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListToggles(ctx context.Context) ([]models.ServiceToggle, error) {
	var toggles []models.ServiceToggle
	if err := r.db.WithContext(ctx).Find(&toggles).Error; err != nil {
		return nil, err
	}
	return toggles, nil
}

func (r *repository) UpsertToggle(ctx context.Context, toggle *models.ServiceToggle) error {
	// Explicit conflict clause so a false enabled value survives the insert
	// path instead of losing to the column default.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "service_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(toggle).Error
}
