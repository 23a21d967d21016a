package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/arturmelo/flagbearer/internal/logger"
	"github.com/arturmelo/flagbearer/internal/override"
	"github.com/arturmelo/flagbearer/internal/store"
)

// handleListOverrides processes GET /api/v1/feature_flags/{id}/overrides,
// returning the flag's overrides grouped by kind.
func (a *API) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	overrides, err := a.manager.List(r.Context(), flag)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list overrides", slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	resp := OverridesIndexResponse{
		UserOverrides:   []OverrideResponse{},
		GroupOverrides:  []OverrideResponse{},
		RegionOverrides: []OverrideResponse{},
	}
	for _, o := range overrides {
		switch o.Kind {
		case store.KindUser:
			resp.UserOverrides = append(resp.UserOverrides, overrideResponse(o))
		case store.KindGroup:
			resp.GroupOverrides = append(resp.GroupOverrides, overrideResponse(o))
		case store.KindRegion:
			resp.RegionOverrides = append(resp.RegionOverrides, overrideResponse(o))
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// overrideParams extracts the override mutation parameters from the JSON
// body, falling back to query parameters for clients that send them there
// (the DELETE path commonly does).
func overrideParams(r *http.Request) OverrideRequest {
	var req OverrideRequest
	if r.Body != nil {
		_ = render.DecodeJSON(r.Body, &req)
	}

	query := r.URL.Query()
	if req.Type == "" {
		req.Type = query.Get("type")
	}
	if req.Identifier == "" {
		req.Identifier = query.Get("identifier")
	}

	return req
}

// validateOverrideParams performs boundary validation of the mutation input,
// rendering a 400 argument_error and returning false when it is malformed.
// This runs before the manager: malformed input never reaches the domain
// layer. requireEnabled is true for create, where a missing enabled value
// must not silently default to false.
func validateOverrideParams(w http.ResponseWriter, r *http.Request, req OverrideRequest, requireEnabled bool) bool {
	if !store.Kind(req.Type).Valid() {
		renderArgumentError(w, r, "Type must be one of: user, group, region")
		return false
	}

	if strings.TrimSpace(req.Identifier) == "" {
		renderArgumentError(w, r, "Identifier is required")
		return false
	}

	if requireEnabled && req.Enabled == nil {
		renderArgumentError(w, r, "Enabled is required")
		return false
	}

	return true
}

// handleCreateOverride processes POST /api/v1/feature_flags/{id}/overrides.
// Creating an override for a scope that already has one updates it in place.
func (a *API) handleCreateOverride(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	req := overrideParams(r)
	if !validateOverrideParams(w, r, req, true) {
		return
	}

	result, err := a.manager.CreateOrUpdate(r.Context(), flag, store.Kind(req.Type), req.Identifier, *req.Enabled)
	if err != nil {
		if errors.Is(err, override.ErrInvalidKind) {
			renderArgumentError(w, r, "Type must be one of: user, group, region")
			return
		}

		log.Error("failed to apply override", slog.Int64("flag_id", flag.ID), slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	if !result.Success {
		renderValidationError(w, r, result.Errors)
		return
	}

	log.Info("override applied",
		slog.Int64("flag_id", flag.ID),
		slog.String("type", req.Type),
		slog.String("identifier", result.Override.Identifier),
		slog.Bool("enabled", result.Override.Enabled),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, overrideResponse(result.Override))
}

// handleDeleteOverride processes DELETE /api/v1/feature_flags/{id}/overrides.
// Removing an override that does not exist is a reported business failure
// (422), not a crash.
func (a *API) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	req := overrideParams(r)
	if !validateOverrideParams(w, r, req, false) {
		return
	}

	result, err := a.manager.Remove(r.Context(), flag, store.Kind(req.Type), req.Identifier)
	if err != nil {
		if errors.Is(err, override.ErrInvalidKind) {
			renderArgumentError(w, r, "Type must be one of: user, group, region")
			return
		}

		log.Error("failed to remove override", slog.Int64("flag_id", flag.ID), slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	if !result.Success {
		renderValidationError(w, r, result.Errors)
		return
	}

	log.Info("override removed",
		slog.Int64("flag_id", flag.ID),
		slog.String("type", req.Type),
		slog.String("identifier", req.Identifier),
	)
	render.NoContent(w, r)
}
