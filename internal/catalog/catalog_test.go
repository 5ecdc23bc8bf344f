package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  service_type TEXT NOT NULL,
  price NUMERIC NOT NULL,
  cost_price NUMERIC NOT NULL,
  data_amount TEXT NOT NULL,
  supplier_package_id TEXT NOT NULL UNIQUE,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	toggles := `
CREATE TABLE IF NOT EXISTS service_toggles (
  service_type TEXT PRIMARY KEY,
  enabled INTEGER NOT NULL DEFAULT 1,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(toggles).Error)
	return db
}

func newTestProduct(packageID string, active bool) models.Product {
	cost := decimal.RequireFromString("5.20")
	return models.Product{
		ID:                uuid.New(),
		Name:              "1GB Bundle",
		ServiceType:       enums.ServiceTypeMTNUp2U,
		Price:             decimal.RequireFromString("6.00"),
		CostPrice:         &cost,
		DataAmount:        "1GB",
		SupplierPackageID: packageID,
		IsActive:          active,
	}
}

func TestFindActiveProductSkipsInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	active := newTestProduct("up2u-1gb", true)
	inactive := newTestProduct("up2u-2gb", false)
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&inactive).Error)

	found, err := repo.FindActiveProductByPackageID(ctx, "up2u-1gb")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveProductByPackageID(ctx, "up2u-2gb")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestToggleSnapshotRefreshSwapsGeneration(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	snapshot := NewToggleSnapshot(repo)

	// Seed view: everything enabled.
	assert.True(t, snapshot.IsEnabled(enums.ServiceTypeTelecel))
	assert.Equal(t, int64(0), snapshot.Version())

	for _, serviceType := range enums.ServiceTypes() {
		enabled := serviceType != enums.ServiceTypeTelecel
		require.NoError(t, repo.UpsertToggle(ctx, &models.ServiceToggle{
			ServiceType: serviceType,
			Enabled:     enabled,
		}))
	}

	require.NoError(t, snapshot.Refresh(ctx))

	assert.Equal(t, int64(1), snapshot.Version())
	assert.False(t, snapshot.IsEnabled(enums.ServiceTypeTelecel))
	assert.True(t, snapshot.IsEnabled(enums.ServiceTypeMTNUp2U))
}

func TestUpsertTogglePersistsDisabledOnInsert(t *testing.T) {
	// The enabled column has a DB default of true; a disabled toggle written
	// to a fresh table must not lose to it.
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertToggle(ctx, &models.ServiceToggle{
		ServiceType: enums.ServiceTypeTelecel,
		Enabled:     false,
	}))

	stored, err := repo.ListToggles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.ServiceTypeTelecel, stored[0].ServiceType)
	assert.False(t, stored[0].Enabled)

	// Flip through the update path and back again.
	require.NoError(t, repo.UpsertToggle(ctx, &models.ServiceToggle{
		ServiceType: enums.ServiceTypeTelecel,
		Enabled:     true,
	}))
	require.NoError(t, repo.UpsertToggle(ctx, &models.ServiceToggle{
		ServiceType: enums.ServiceTypeTelecel,
		Enabled:     false,
	}))

	stored, err = repo.ListToggles(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Enabled)
}

func TestToggleSnapshotTreatsMissingCarrierAsDisabled(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	snapshot := NewToggleSnapshot(repo)
	require.NoError(t, repo.UpsertToggle(ctx, &models.ServiceToggle{
		ServiceType: enums.ServiceTypeAT,
		Enabled:     true,
	}))
	require.NoError(t, snapshot.Refresh(ctx))

	assert.True(t, snapshot.IsEnabled(enums.ServiceTypeAT))
	assert.False(t, snapshot.IsEnabled(enums.ServiceTypeMTNExpress))
}
