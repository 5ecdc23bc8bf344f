package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// Order is the central purchase record. It carries two independent status
// axes: PaymentStatus (money) and FulfillmentStatus (delivery). Several
// orders may share one PaymentReference when a single payment funds a bulk
// purchase. Orders are never deleted, only stamped.
type Order struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null"`

	ServiceType      enums.ServiceType `gorm:"column:service_type;type:text;not null"`
	Amount           decimal.Decimal   `gorm:"column:amount;type:numeric(10,2);not null"`
	CostPrice        *decimal.Decimal  `gorm:"column:cost_price;type:numeric(10,2)"`
	BeneficiaryPhone string            `gorm:"column:beneficiary_phone;not null"`

	PaymentReference  string  `gorm:"column:payment_reference;not null;index"`
	SupplierReference *string `gorm:"column:supplier_reference"`
	SupplierPackageID string  `gorm:"column:supplier_package_id;not null"`

	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'PENDING_PAYMENT'"`

	// LastError keeps the most recent supplier/gateway failure for operator
	// diagnosis and retry decisions. Raw third-party bodies land in logs,
	// not here.
	LastError *string `gorm:"column:last_error"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (Order) TableName() string { return "orders" }
