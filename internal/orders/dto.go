package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// Filters describe the inputs supported by the order lists.
type Filters struct {
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	ServiceType       *enums.ServiceType
	DateFrom          *time.Time
	DateTo            *time.Time
	Query             string
}

// Summary exposes the aggregated fields returned in order lists.
type Summary struct {
	ID                uuid.UUID               `json:"id"`
	UserID            uuid.UUID               `json:"user_id"`
	ServiceType       enums.ServiceType       `json:"service_type"`
	Amount            string                  `json:"amount"`
	BeneficiaryPhone  string                  `json:"beneficiary_phone"`
	PaymentReference  string                  `json:"payment_reference"`
	SupplierReference *string                 `json:"supplier_reference,omitempty"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	CreatedAt         time.Time               `json:"created_at"`
}

// List wraps a page of orders plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
