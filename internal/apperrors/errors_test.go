package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestFromStorage(t *testing.T) {
	assert.NoError(t, FromStorage(nil, "poll"))

	err := FromStorage(pgx.ErrNoRows, "poll")
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, "poll not found", err.(*Error).Message)

	err = FromStorage(fmt.Errorf("scan: %w", pgx.ErrNoRows), "group")
	assert.True(t, Is(err, KindNotFound))

	dup := DuplicateVote()
	assert.Same(t, dup, FromStorage(dup, "vote"))

	cause := errors.New("connection reset")
	err = FromStorage(cause, "vote")
	assert.True(t, Is(err, KindTransientStorage))
	assert.ErrorIs(t, err, cause)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("cast vote: %w", DuplicateVote())
	assert.Equal(t, KindDuplicateVote, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	internal := Internal(errors.New("nil map"))
	assert.Equal(t, "internal server error", internal.Message)
	assert.ErrorContains(t, internal, "nil map")
	assert.False(t, Is(nil, KindNotFound))
}
