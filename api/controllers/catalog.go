package controllers

import (
	"net/http"
	"strings"

	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/internal/catalog"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

type bundleView struct {
	PackageID   string            `json:"package_id"`
	Name        string            `json:"name"`
	ServiceType enums.ServiceType `json:"service_type"`
	DataAmount  string            `json:"data_amount"`
	Price       string            `json:"price"`
}

// ListBundles returns the purchasable bundles. Carriers whose toggle is off
// are hidden entirely rather than shown as unavailable.
func ListBundles(repo catalog.Repository, toggles *catalog.ToggleSnapshot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || toggles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var serviceFilter *enums.ServiceType
		if raw := strings.TrimSpace(r.URL.Query().Get("service_type")); raw != "" {
			service, err := enums.ParseServiceType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type"))
				return
			}
			serviceFilter = &service
		}

		products, err := repo.ListActiveProducts(r.Context(), serviceFilter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products"))
			return
		}

		bundles := []bundleView{}
		for _, product := range products {
			if !toggles.IsEnabled(product.ServiceType) {
				continue
			}
			bundles = append(bundles, bundleView{
				PackageID:   product.SupplierPackageID,
				Name:        product.Name,
				ServiceType: product.ServiceType,
				DataAmount:  product.DataAmount,
				Price:       product.Price.StringFixed(2),
			})
		}
		responses.WriteSuccess(w, map[string]any{"bundles": bundles})
	}
}
