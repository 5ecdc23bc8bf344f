package models

import (
	"time"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// ServiceToggle enables or disables a carrier/product line. Rows are read
// into a versioned in-memory snapshot at startup and after settings webhooks;
// request paths never mutate toggles in place.
type ServiceToggle struct {
	ServiceType enums.ServiceType `gorm:"column:service_type;type:text;primaryKey"`
	Enabled     bool              `gorm:"column:enabled;not null"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (ServiceToggle) TableName() string { return "service_toggles" }
