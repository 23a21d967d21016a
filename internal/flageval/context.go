// Package flageval provides the core logic for feature flag evaluation.
// It resolves the override precedence chain (user > group > region > global
// default) for a flag and request context, caching boolean results under a
// normalized fingerprint key.
package flageval

import (
	"fmt"
	"strings"
)

// keyPrefix namespaces every evaluation fingerprint in the result cache.
// Example: "feature_flag_evaluation:42:user1:-:us-east"
const keyPrefix = "feature_flag_evaluation"

// absentSegment marks a context dimension that is not present in a
// fingerprint. Keys always carry all three positions so that, e.g.,
// {user_id: "x"} and {group_id: "x"} can never collide.
const absentSegment = "-"

// NormalizeIdentifier lowercases and trims a scope identifier.
// Blank or whitespace-only input normalizes to the empty string ("absent").
// The function is idempotent: normalizing normalized input is a no-op.
func NormalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Context carries the request dimensions an evaluation resolves against.
// Each field is independently optional; blank means absent.
type Context struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	Region  string `json:"region"`
}

// Normalize returns a copy of the context with every identifier normalized.
func (c Context) Normalize() Context {
	return Context{
		UserID:  NormalizeIdentifier(c.UserID),
		GroupID: NormalizeIdentifier(c.GroupID),
		Region:  NormalizeIdentifier(c.Region),
	}
}

// Fingerprint builds the cache key for a flag and normalized context.
// The caller is responsible for normalizing the context first.
func Fingerprint(flagID int64, c Context) string {
	return fmt.Sprintf("%s:%d:%s:%s:%s",
		keyPrefix,
		flagID,
		segment(c.UserID),
		segment(c.GroupID),
		segment(c.Region),
	)
}

// FlagKeyPrefix returns the prefix shared by every cache entry of a flag.
// Override mutations sweep this prefix to invalidate all of the flag's
// cached results at once.
func FlagKeyPrefix(flagID int64) string {
	return fmt.Sprintf("%s:%d:", keyPrefix, flagID)
}

func segment(id string) string {
	if id == "" {
		return absentSegment
	}
	return id
}
