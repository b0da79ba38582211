package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCause = errors.New("row missing")

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(errCause, CodeNotFound, "student not found")

	require.ErrorIs(t, err, errCause)
	assert.True(t, HasCode(err, CodeNotFound))
	assert.Equal(t, "student not found: row missing", err.Error())
	assert.Equal(t, "student not found", MessageOf(err))
}

func TestCodeOf(t *testing.T) {
	t.Run("coded error", func(t *testing.T) {
		assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "busy")))
	})

	t.Run("coded error behind fmt wrap", func(t *testing.T) {
		err := fmt.Errorf("enroll: %w", New(CodePolicyViolation, "course is full"))
		assert.Equal(t, CodePolicyViolation, CodeOf(err))
		assert.True(t, HasCode(err, CodePolicyViolation))
	})

	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errCause))
		assert.False(t, HasCode(errCause, CodeInternal))
		assert.Empty(t, MessageOf(errCause))
	})
}
