package flageval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Should lowercase and trim surrounding whitespace",
			input: "  USER1  ",
			want:  "user1",
		},
		{
			name:  "Should leave already-normalized input unchanged (idempotence)",
			input: "user1",
			want:  "user1",
		},
		{
			name:  "Should normalize blank input to absent",
			input: "   ",
			want:  "",
		},
		{
			name:  "Should normalize empty input to absent",
			input: "",
			want:  "",
		},
		{
			name:  "Should preserve inner whitespace",
			input: " Us East 1 ",
			want:  "us east 1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeIdentifier(tt.input)
			assert.Equal(t, tt.want, got)

			// Idempotence holds for every input
			assert.Equal(t, got, NormalizeIdentifier(got))
		})
	}
}

func TestContext_Normalize(t *testing.T) {
	t.Parallel()

	ec := Context{UserID: " USER1 ", GroupID: "", Region: "US-East"}

	got := ec.Normalize()

	assert.Equal(t, Context{UserID: "user1", GroupID: "", Region: "us-east"}, got)
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		ec   Context
		want string
	}{
		{
			name: "Should place all three dimensions in fixed positions",
			ec:   Context{UserID: "user1", GroupID: "group1", Region: "us-east"},
			want: "feature_flag_evaluation:42:user1:group1:us-east",
		},
		{
			name: "Should mark absent dimensions instead of dropping them",
			ec:   Context{UserID: "user1"},
			want: "feature_flag_evaluation:42:user1:-:-",
		},
		{
			name: "Should not collide across dimensions carrying the same value",
			ec:   Context{GroupID: "user1"},
			want: "feature_flag_evaluation:42:-:user1:-",
		},
		{
			name: "Should build an all-absent key for an empty context",
			ec:   Context{},
			want: "feature_flag_evaluation:42:-:-:-",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Fingerprint(42, tt.ec))
		})
	}
}

func TestFlagKeyPrefix(t *testing.T) {
	t.Parallel()

	prefix := FlagKeyPrefix(42)

	// Every fingerprint of the flag falls under the invalidation prefix.
	assert.True(t, strings.HasPrefix(Fingerprint(42, Context{UserID: "user1"}), prefix))
	assert.True(t, strings.HasPrefix(Fingerprint(42, Context{}), prefix))

	// A different flag's fingerprints never do.
	assert.False(t, strings.HasPrefix(Fingerprint(421, Context{}), prefix))
}
