// Package api implements the REST surface of Flagbearer.
// It handles HTTP routing, request decoding, boundary validation, and
// response formatting; domain decisions live in flageval and override.
package api

import (
	"strings"
	"time"

	"github.com/arturmelo/flagbearer/internal/store"
)

// FlagResponse is the JSON representation of a feature flag.
type FlagResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	GlobalDefaultState bool      `json:"global_default_state"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func flagResponse(f *store.FeatureFlag) FlagResponse {
	return FlagResponse{
		ID:                 f.ID,
		Name:               f.Name,
		GlobalDefaultState: f.GlobalDefaultState,
		Description:        f.Description,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// OverrideResponse is the JSON representation of an override.
type OverrideResponse struct {
	ID            int64     `json:"id"`
	FeatureFlagID int64     `json:"feature_flag_id"`
	Type          string    `json:"type"`
	Identifier    string    `json:"identifier"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func overrideResponse(o *store.Override) OverrideResponse {
	return OverrideResponse{
		ID:            o.ID,
		FeatureFlagID: o.FeatureFlagID,
		Type:          string(o.Kind),
		Identifier:    o.Identifier,
		Enabled:       o.Enabled,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// OverridesIndexResponse groups a flag's overrides by kind for the listing
// endpoint.
type OverridesIndexResponse struct {
	UserOverrides   []OverrideResponse `json:"user_overrides"`
	GroupOverrides  []OverrideResponse `json:"group_overrides"`
	RegionOverrides []OverrideResponse `json:"region_overrides"`
}

// CreateFlagRequest defines the payload for creating a flag.
// GlobalDefaultState defaults to false when omitted (secure by default).
type CreateFlagRequest struct {
	Name               string `json:"name"`
	GlobalDefaultState bool   `json:"global_default_state"`
	Description        string `json:"description,omitempty"`
}

// Sanitize trims surrounding whitespace from free-text fields. Full name
// normalization (lowercasing) happens once, at the store's write path.
func (r *CreateFlagRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// Validate checks the request against the flag's field rules.
// It returns the detail messages of every failed rule, or nil if valid.
func (r *CreateFlagRequest) Validate() []string {
	var details []string
	if r.Name == "" {
		details = append(details, "Name can't be blank")
	}
	return details
}

// UpdateFlagRequest defines the payload for partial updates (PATCH).
// Pointers distinguish "missing field" (keep current) from an explicit
// update to the zero value.
type UpdateFlagRequest struct {
	Name               *string `json:"name,omitempty"`
	GlobalDefaultState *bool   `json:"global_default_state,omitempty"`
	Description        *string `json:"description,omitempty"`
}

// Validate checks the provided fields against the flag's field rules.
func (r *UpdateFlagRequest) Validate() []string {
	var details []string
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		details = append(details, "Name can't be blank")
	}
	return details
}

// Apply copies the provided fields onto the flag.
func (r *UpdateFlagRequest) Apply(f *store.FeatureFlag) {
	if r.Name != nil {
		f.Name = strings.TrimSpace(*r.Name)
	}
	if r.GlobalDefaultState != nil {
		f.GlobalDefaultState = *r.GlobalDefaultState
	}
	if r.Description != nil {
		f.Description = strings.TrimSpace(*r.Description)
	}
}

// OverrideRequest defines the payload for override mutations.
// Enabled is a pointer so the boundary can reject a missing value instead of
// silently defaulting it to false.
type OverrideRequest struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
	Enabled    *bool  `json:"enabled"`
}

// EvaluateRequest carries the optional evaluation context from the request
// body. Query parameters with the same names take precedence.
type EvaluateRequest struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	Region  string `json:"region"`
}

// EvaluationResponse is the plain (cached) evaluation result.
type EvaluationResponse struct {
	Enabled         bool   `json:"enabled"`
	FeatureFlagName string `json:"feature_flag_name"`
}

// EvaluationMetadataResponse is the uncached evaluation result including the
// tier that decided the value.
type EvaluationMetadataResponse struct {
	Enabled         bool   `json:"enabled"`
	Source          string `json:"source"`
	FeatureFlagName string `json:"feature_flag_name"`
}
