package fulfillment

import (
	"strings"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// supplierStatusMap fixes how supplier-reported delivery states translate to
// the platform's fulfillment axis. Lookups are case-insensitive. Statuses
// outside this table leave the order untouched rather than guessing.
var supplierStatusMap = map[string]enums.FulfillmentStatus{
	"success":    enums.FulfillmentStatusFulfilled,
	"completed":  enums.FulfillmentStatusFulfilled,
	"fulfilled":  enums.FulfillmentStatusFulfilled,
	"failed":     enums.FulfillmentStatusFailed,
	"cancelled":  enums.FulfillmentStatusFailed,
	"refunded":   enums.FulfillmentStatusFailed,
	"pending":    enums.FulfillmentStatusProcessing,
	"processing": enums.FulfillmentStatusProcessing,
	"queued":     enums.FulfillmentStatusProcessing,
}

// MapSupplierStatus resolves a supplier-reported status. ok is false for
// statuses the platform does not recognize.
func MapSupplierStatus(raw string) (enums.FulfillmentStatus, bool) {
	status, ok := supplierStatusMap[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}
