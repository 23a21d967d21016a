package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/arturmelo/flagbearer/internal/logger"
	"github.com/arturmelo/flagbearer/internal/store"
)

// fetchFlag resolves the {id} path parameter to a flag, rendering the
// appropriate error response when it can't. A non-numeric ID reads the same
// as a missing row: 404, matching the flag-not-found contract.
func (a *API) fetchFlag(w http.ResponseWriter, r *http.Request) (*store.FeatureFlag, bool) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		renderNotFound(w, r, fmt.Sprintf("Feature flag '%s' not found", raw))
		return nil, false
	}

	flag, err := a.flags.GetFlag(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderNotFound(w, r, fmt.Sprintf("Feature flag '%s' not found", raw))
			return nil, false
		}

		logger.FromContext(r.Context()).Error("failed to fetch flag", slog.Any("error", err))
		renderInternalError(w, r)
		return nil, false
	}

	return flag, true
}

// handleListFlags processes GET /api/v1/feature_flags.
func (a *API) handleListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := a.flags.ListFlags(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list flags", slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	resp := make([]FlagResponse, len(flags))
	for i, f := range flags {
		resp[i] = flagResponse(f)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// handleGetFlag processes GET /api/v1/feature_flags/{id}.
func (a *API) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, flagResponse(flag))
}

// handleCreateFlag processes POST /api/v1/feature_flags.
//
// Responsibilities:
// 1. Decode the JSON payload into the CreateFlagRequest DTO.
// 2. Sanitize and validate the input via the DTO.
// 3. Persist through the repository, mapping duplicate names to 422.
// 4. Return the created resource with 201.
func (a *API) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderArgumentError(w, r, "Invalid JSON payload")
		return
	}

	req.Sanitize()
	if details := req.Validate(); details != nil {
		renderValidationError(w, r, details)
		return
	}

	flag := &store.FeatureFlag{
		Name:               req.Name,
		GlobalDefaultState: req.GlobalDefaultState,
		Description:        req.Description,
	}

	if err := a.flags.CreateFlag(r.Context(), flag); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			renderValidationError(w, r, []string{"Name has already been taken"})
			return
		}

		log.Error("failed to create flag", slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	log.Info("flag created", slog.String("flag_name", flag.Name), slog.Int64("flag_id", flag.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, flagResponse(flag))
}

// handleUpdateFlag processes PATCH /api/v1/feature_flags/{id}.
// Only the fields present in the payload are changed.
func (a *API) handleUpdateFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	var req UpdateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderArgumentError(w, r, "Invalid JSON payload")
		return
	}

	if details := req.Validate(); details != nil {
		renderValidationError(w, r, details)
		return
	}

	req.Apply(flag)

	if err := a.flags.UpdateFlag(r.Context(), flag); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			renderValidationError(w, r, []string{"Name has already been taken"})
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			renderNotFound(w, r, fmt.Sprintf("Feature flag '%d' not found", flag.ID))
			return
		}

		log.Error("failed to update flag", slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	log.Info("flag updated", slog.Int64("flag_id", flag.ID))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, flagResponse(flag))
}

// handleDeleteFlag processes DELETE /api/v1/feature_flags/{id}.
// Overrides cascade at the database layer; cached evaluations for the flag
// expire with the TTL.
func (a *API) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	if err := a.flags.DeleteFlag(r.Context(), flag.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderNotFound(w, r, fmt.Sprintf("Feature flag '%d' not found", flag.ID))
			return
		}

		log.Error("failed to delete flag", slog.Any("error", err))
		renderFeatureFlagError(w, r, "Failed to delete feature flag")
		return
	}

	log.Info("flag deleted", slog.Int64("flag_id", flag.ID), slog.String("flag_name", flag.Name))
	render.NoContent(w, r)
}
