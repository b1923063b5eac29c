package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallReturnsValue(t *testing.T) {
	v, err := Call(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "open", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "open", v)
}

func TestCallTimesOutOnStubbornCallee(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	_, err := Call(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-block // ignores ctx
		return 1, nil
	})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCallRecoversPanic(t *testing.T) {
	_, err := Call(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		panic("boom")
	})
	assert.ErrorContains(t, err, "boom")
}

func TestCallPropagatesError(t *testing.T) {
	want := errors.New("rejected")
	_, err := Call(context.Background(), 0, func(ctx context.Context) (int, error) {
		return 0, want
	})
	assert.Equal(t, want, err)
}
