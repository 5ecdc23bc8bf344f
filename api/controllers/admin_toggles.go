package controllers

import (
	"net/http"

	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/api/validators"
	"github.com/yawasante/databundles-backend/internal/catalog"
	"github.com/yawasante/databundles-backend/pkg/db/models"
	"github.com/yawasante/databundles-backend/pkg/enums"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

type toggleRequest struct {
	ServiceType string `json:"service_type" validate:"required"`
	Enabled     *bool  `json:"enabled" validate:"required"`
}

type toggleView struct {
	ServiceType enums.ServiceType `json:"service_type"`
	Enabled     bool              `json:"enabled"`
}

// AdminListServiceToggles shows the current per-carrier availability.
func AdminListServiceToggles(repo catalog.Repository, toggles *catalog.ToggleSnapshot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		stored, err := repo.ListToggles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list toggles"))
			return
		}

		views := make([]toggleView, 0, len(stored))
		for _, toggle := range stored {
			views = append(views, toggleView{ServiceType: toggle.ServiceType, Enabled: toggle.Enabled})
		}

		payload := map[string]any{"toggles": views}
		if toggles != nil {
			payload["snapshot_version"] = toggles.Version()
		}
		responses.WriteSuccess(w, payload)
	}
}

// AdminSetServiceToggle flips a carrier on or off and swaps in a fresh
// snapshot so in-flight requests keep a consistent view.
func AdminSetServiceToggle(repo catalog.Repository, toggles *catalog.ToggleSnapshot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || toggles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var req toggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		service, err := enums.ParseServiceType(req.ServiceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type"))
			return
		}

		toggle := &models.ServiceToggle{ServiceType: service, Enabled: *req.Enabled}
		if err := repo.UpsertToggle(r.Context(), toggle); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save toggle"))
			return
		}
		if err := toggles.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh toggle snapshot"))
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"service_type": service.String(),
				"enabled":      *req.Enabled,
			})
			logg.Info(ctx, "service toggle updated")
		}
		responses.WriteSuccess(w, toggleView{ServiceType: service, Enabled: *req.Enabled})
	}
}
