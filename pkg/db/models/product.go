package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// Product is the catalog entry a purchase snapshots from. Catalog CRUD is
// owned elsewhere; the core reads products and freezes price and supplier
// package id into the Order at creation time.
type Product struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string            `gorm:"column:name;not null"`
	ServiceType       enums.ServiceType `gorm:"column:service_type;type:text;not null"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	CostPrice         *decimal.Decimal  `gorm:"column:cost_price;type:numeric(10,2)"`
	DataAmount        string            `gorm:"column:data_amount;not null"`
	SupplierPackageID string            `gorm:"column:supplier_package_id;uniqueIndex"`
	IsActive          bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (Product) TableName() string { return "products" }
