package controllers

import (
	"net/http"
	"strings"

	"github.com/yawasante/databundles-backend/api/validators"
	"github.com/yawasante/databundles-backend/internal/orders"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
)

// orderFiltersFromQuery parses the filter set shared by the customer and
// operator order lists.
func orderFiltersFromQuery(r *http.Request) (orders.Filters, error) {
	var filters orders.Filters

	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").WithDetails(map[string]any{"field": "payment_status"})
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("fulfillment_status")); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment status").WithDetails(map[string]any{"field": "fulfillment_status"})
		}
		filters.FulfillmentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("service_type")); raw != "" {
		service, err := enums.ParseServiceType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type").WithDetails(map[string]any{"field": "service_type"})
		}
		filters.ServiceType = &service
	}

	from, err := validators.ParseQueryTime(r, "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = from

	to, err := validators.ParseQueryTime(r, "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = to

	filters.Query = validators.SanitizeString(r.URL.Query().Get("q"), 64)
	return filters, nil
}
