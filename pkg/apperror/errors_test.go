package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_FormatsWithAndWithoutField(t *testing.T) {
	plain := New(CodeNotFound, "missing")
	assert.Equal(t, "[NOT_FOUND] missing", plain.Error())

	withField := NewWithField(CodeInvalidArgument, "bad value", "volume")
	assert.Equal(t, "[INVALID_ARGUMENT] bad value (field: volume)", withField.Error())
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(cause, CodeInternal, "failed")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
}

func TestWithDetails_WithField_WithSeverity_Chain(t *testing.T) {
	err := New(CodeInvalidMode, "bad mode").
		WithDetails("mode", "combine").
		WithField("mode").
		WithSeverity(SeverityCritical)

	assert.Equal(t, "combine", err.Details["mode"])
	assert.Equal(t, "mode", err.Field)
	assert.Equal(t, SeverityCritical, err.Severity)
}

func TestIs_MatchesCodeThroughWrapping(t *testing.T) {
	err := New(CodeEmptySelection, "no matches")
	var plain error = fmt.Errorf("outer: %w", err)
	assert.True(t, Is(plain, CodeEmptySelection))
	assert.False(t, Is(plain, CodeNotFound))
	assert.False(t, Is(errors.New("unrelated"), CodeEmptySelection))
}

func TestCode_DefaultsToInternalForForeignErrors(t *testing.T) {
	assert.Equal(t, CodeInternal, Code(errors.New("foreign")))
	assert.Equal(t, CodeNoDemands, Code(New(CodeNoDemands, "empty")))
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "critical", SeverityCritical.String())
}
