package wirenet

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yawasante/databundles-backend/pkg/enums"
)

// serviceIDs maps platform carriers onto the supplier's service identifiers.
var serviceIDs = map[enums.ServiceType]string{
	enums.ServiceTypeMTNUp2U:    "datagod",
	enums.ServiceTypeMTNExpress: "fastnet",
	enums.ServiceTypeAT:         "at",
	enums.ServiceTypeTelecel:    "telecel",
}

// ErrUnknownServiceType reports a carrier with no supplier mapping.
type ErrUnknownServiceType struct {
	ServiceType enums.ServiceType
}

func (e *ErrUnknownServiceType) Error() string {
	return fmt.Sprintf("no supplier service mapped for %q", e.ServiceType)
}

// ServiceID resolves the supplier identifier for a carrier.
func ServiceID(serviceType enums.ServiceType) (string, error) {
	id, ok := serviceIDs[serviceType]
	if !ok {
		return "", &ErrUnknownServiceType{ServiceType: serviceType}
	}
	return id, nil
}

// SupplierError is a rejected order placement. InsufficientBalance marks the
// one failure class callers treat differently from generic rejections.
type SupplierError struct {
	Message             string
	InsufficientBalance bool
}

func (e *SupplierError) Error() string {
	return fmt.Sprintf("supplier rejected order: %s", e.Message)
}

// OrderParams carries a single bundle placement. RequestID is the platform's
// payment reference; the supplier echoes it back in delivery callbacks.
type OrderParams struct {
	ServiceType enums.ServiceType
	PackageID   string
	PhoneNumber string
	RequestID   string
}

// OrderResult is the supplier's acknowledgement of a placed order.
type OrderResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// BalanceResult is the wholesale wallet balance.
type BalanceResult struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// CatalogItem is one sellable package in the supplier's catalog.
type CatalogItem struct {
	ServiceID  string          `json:"service_id"`
	PackageID  string          `json:"package_id"`
	Name       string          `json:"name"`
	DataAmount string          `json:"data_amount"`
	Price      decimal.Decimal `json:"price"`
}
