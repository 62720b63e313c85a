package timeindex

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	cause := errors.New("disk full")
	err := &Error{Kind: ErrStorageUnavailable, Op: "append", Path: "a.jsonl", Err: cause}
	assert.Equal(t, "append: storage unavailable (a.jsonl): disk full", err.Error())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)

	err = &Error{Kind: ErrMalformedRecord, Op: "load", Path: "a.jsonl", Line: 3, Msg: "invalid record syntax"}
	assert.Equal(t, "load: malformed record (a.jsonl:3): invalid record syntax", err.Error())
	assert.NotErrorIs(t, err, ErrCorruptIndex)
}

func TestKindName(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Kind: ErrMalformedRecord}, "malformed_record"},
		{&Error{Kind: ErrNonMonotonicWrite}, "non_monotonic_write"},
		{&Error{Kind: ErrCorruptIndex}, "corrupt_index"},
		{&Error{Kind: ErrStorageUnavailable}, "storage_unavailable"},
		{fmt.Errorf("wrapped: %w", &Error{Kind: ErrEmpty}), "empty"},
		{ErrOutOfBounds, "out_of_bounds"},
		{errors.New("other"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindName(tt.err))
	}
	assert.Len(t, KindNames(), 6)
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(&Error{Kind: ErrEmpty}))
	assert.True(t, IsNoData(&Error{Kind: ErrOutOfBounds}))
	assert.False(t, IsNoData(&Error{Kind: ErrCorruptIndex}))
	assert.False(t, IsNoData(nil))
}
