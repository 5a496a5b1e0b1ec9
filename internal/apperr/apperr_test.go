package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureNotFound(t *testing.T) {
	err := FeatureNotFound("auth:jwt", "monolith")

	assert.Equal(t, CodeFeatureNotFound, err.Code)
	assert.Equal(t, `feature "auth:jwt" not found for monolith architecture`, err.Error())
	assert.Equal(t, "auth:jwt", err.Details["featureName"])
	assert.Equal(t, "monolith", err.Details["architecture"])
}

func TestIs_MatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("applying feature: %w", FileSystem("missing", "/x", nil))

	assert.True(t, errors.Is(wrapped, ErrFileSystem))
	assert.False(t, errors.Is(wrapped, ErrTemplate))
}

func TestError_IncludesCause(t *testing.T) {
	err := Template("failed to render", "partials/a.ts", errors.New("unexpected EOF"))

	assert.Equal(t, "failed to render: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, ErrTemplate)
	assert.Equal(t, "unexpected EOF", errors.Unwrap(err).Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "typed", err: Validation("bad", nil), want: CodeValidation},
		{name: "wrapped", err: fmt.Errorf("x: %w", ProjectNotReady("1", "pending")), want: CodeProjectNotReady},
		{name: "untyped", err: errors.New("boom"), want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestToPayload(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("typed error keeps code and details", func(t *testing.T) {
		p := ToPayload(fmt.Errorf("wrap: %w", GenerationNotFound("abc")), now)

		assert.Equal(t, CodeGenerationNotFound, p.Code)
		assert.Equal(t, "generation not found", p.Message)
		assert.Equal(t, "abc", p.Details["generationId"])
		assert.Equal(t, now, p.Timestamp)
	})

	t.Run("untyped error becomes unknown", func(t *testing.T) {
		p := ToPayload(errors.New("disk on fire"), now)

		require.Equal(t, CodeUnknown, p.Code)
		assert.Equal(t, "disk on fire", p.Message)
		assert.Nil(t, p.Details)
	})
}
