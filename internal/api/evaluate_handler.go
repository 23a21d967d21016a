package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/arturmelo/flagbearer/internal/flageval"
	"github.com/arturmelo/flagbearer/internal/logger"
)

// handleEvaluate processes POST /api/v1/feature_flags/{id}/evaluate.
//
// The evaluation context (user_id, group_id, region) can come from query
// parameters or the JSON body; query parameters win when both are present.
// With ?metadata=true the response includes the deciding tier and is always
// computed uncached — it can disagree with the cached plain result for up to
// one TTL window after an override mutation.
func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flag, ok := a.fetchFlag(w, r)
	if !ok {
		return
	}

	ec := a.evaluationContext(r)

	if r.URL.Query().Get("metadata") == "true" {
		result, err := a.evaluator.EvaluateWithMetadata(r.Context(), flag, ec)
		if err != nil {
			log.Error("evaluation failed", slog.Int64("flag_id", flag.ID), slog.Any("error", err))
			renderInternalError(w, r)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, EvaluationMetadataResponse{
			Enabled:         result.Enabled,
			Source:          string(result.Source),
			FeatureFlagName: flag.Name,
		})
		return
	}

	enabled, err := a.evaluator.Evaluate(r.Context(), flag, ec)
	if err != nil {
		log.Error("evaluation failed", slog.Int64("flag_id", flag.ID), slog.Any("error", err))
		renderInternalError(w, r)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvaluationResponse{
		Enabled:         enabled,
		FeatureFlagName: flag.Name,
	})
}

// evaluationContext merges the body and query sources of the evaluation
// context. A malformed or absent body is treated as an empty context rather
// than an error: evaluation accepts any input and falls through to the
// global default.
func (a *API) evaluationContext(r *http.Request) flageval.Context {
	var body EvaluateRequest
	if r.Body != nil {
		// Best effort; DecodeJSON fails on an empty body, which is fine here.
		_ = render.DecodeJSON(r.Body, &body)
	}

	ec := flageval.Context{
		UserID:  body.UserID,
		GroupID: body.GroupID,
		Region:  body.Region,
	}

	query := r.URL.Query()
	if v := query.Get("user_id"); v != "" {
		ec.UserID = v
	}
	if v := query.Get("group_id"); v != "" {
		ec.GroupID = v
	}
	if v := query.Get("region"); v != "" {
		ec.Region = v
	}

	return ec
}
