package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	err := Newf(ErrSegmentIO, "segment %d unreadable", 3)
	assert.ErrorIs(t, err, ErrSegmentIO)
	assert.Contains(t, err.Error(), "segment 3 unreadable")

	wrapped := fmt.Errorf("merge failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrSegmentIO)
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{New(ErrConfig, "bad flag"), ExitConfig},
		{New(ErrIndexMissing, "no index"), ExitIndexMissing},
		{New(ErrSegmentIO, "short read"), ExitSegmentIO},
		{New(ErrIndexCorrupt, "bad checksum"), ExitSegmentIO},
		{New(ErrUnknownDoc, "doc 9"), ExitInternal},
		{errors.New("anything else"), ExitInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "error %v", tt.err)
	}
}
