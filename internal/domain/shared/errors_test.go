package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches on code", func(t *testing.T) {
		err := NewNotFoundError("purchase order", uuid.New())
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load order: %w", NewConflictError(CodeInvalidTransition, "cannot move"))
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}

func TestNewDomainError_InfersKind(t *testing.T) {
	tests := []struct {
		code string
		want ErrorKind
	}{
		{CodeEmptyOrder, KindValidation},
		{CodeDuplicateVariant, KindValidation},
		{CodeInvalidTransition, KindConflict},
		{CodeIdempotencyKeyReused, KindConflict},
		{CodeNotFound, KindNotFound},
		{"SOMETHING_ELSE", KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, NewDomainError(tt.code, "x").Kind)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(NewValidationError(CodeInvalidQuantity, "bad")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	wrapped := WrapInternal("save order", errors.New("connection reset"))
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated[int](nil, 41, 2, 20)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 3, p.TotalPages)

	assert.Equal(t, 20, Filter{Page: 2, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 20}.Offset())
}
