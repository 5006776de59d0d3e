package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := New(CodeConfiguration, "missing policy")
		assert.Equal(t, "configuration_error: missing policy", err.Error())
	})

	t.Run("message with cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := Wrap(cause, CodeUnavailable, "redis unreachable")

		assert.Equal(t, "unavailable: redis unreachable: dial tcp: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("cause survives further wrapping", func(t *testing.T) {
		cause := errors.New("root failure")
		err := fmt.Errorf("gather signals: %w", Wrap(cause, CodeInternal, "store failed"))

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidInput, CodeOf(New(CodeInvalidInput, "bad payload")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestIs(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeUnavailable, "dependency down")

	require.True(t, Is(err, CodeUnavailable))
	assert.False(t, Is(err, CodeConfiguration))
	assert.True(t, Is(errors.New("uncoded"), CodeInternal))
}
