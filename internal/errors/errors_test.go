package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeInvalidDimensions, "sheet width must be positive, got %g", -1.0)
	assert.Equal(t, "INVALID_DIMENSIONS: sheet width must be positive, got -1", err.Error())
	assert.Equal(t, "sheet width must be positive, got -1", UserMessage(err))

	wrapped := Wrap(ErrCodeCanceled, context.Canceled, "packing interrupted")
	assert.Equal(t, "CANCELED: packing interrupted: context canceled", wrapped.Error())
	assert.True(t, errors.Is(wrapped, context.Canceled))
}

func TestIsAndGetCode(t *testing.T) {
	base := New(ErrCodeResourceExceeded, "too many free rectangles")
	chained := fmt.Errorf("request 42: %w", base)

	assert.True(t, Is(chained, ErrCodeResourceExceeded))
	assert.False(t, Is(chained, ErrCodeInvalidDimensions))
	assert.Equal(t, ErrCodeResourceExceeded, GetCode(chained))

	plain := errors.New("boom")
	assert.False(t, Is(plain, ErrCodeInternal))
	assert.Equal(t, Code(""), GetCode(plain))
	assert.Equal(t, "boom", UserMessage(plain))
}
