package enums

import "fmt"

// ServiceType names a carrier/product line sold on the platform.
type ServiceType string

const (
	ServiceTypeMTNUp2U    ServiceType = "MTN_UP2U"
	ServiceTypeMTNExpress ServiceType = "MTN_EXPRESS"
	ServiceTypeAT         ServiceType = "AT"
	ServiceTypeTelecel    ServiceType = "TELECEL"
)

var validServiceTypes = []ServiceType{
	ServiceTypeMTNUp2U,
	ServiceTypeMTNExpress,
	ServiceTypeAT,
	ServiceTypeTelecel,
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ServiceTypes returns the closed set of carrier/product lines.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
