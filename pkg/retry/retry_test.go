package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Retry(t *testing.T) {
	t.Run("Test that a successful operation runs exactly once", func(t *testing.T) {
		calls := 0
		result, err := Do(context.Background(), fastOptions(), func() (string, error) {
			calls++
			return "ok", nil
		})
		assert.Nil(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 1, calls)
	})
	t.Run("Test that an operation failing twice succeeds on the third attempt", func(t *testing.T) {
		calls := 0
		result, err := Do(context.Background(), fastOptions(), func() (int, error) {
			calls++
			if calls < 3 {
				return 0, fmt.Errorf("transient failure %d", calls)
			}
			return 42, nil
		})
		assert.Nil(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 3, calls)
	})
	t.Run("Test that exhausted retries return the last error", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fastOptions(), func() (int, error) {
			calls++
			return 0, fmt.Errorf("failure %d", calls)
		})
		assert.NotNil(t, err)
		assert.Equal(t, "failure 3", err.Error())
		assert.Equal(t, 3, calls)
	})
	t.Run("Test that OnRetry fires before each re-attempt with the previous error", func(t *testing.T) {
		retries := make([]int, 0)
		opts := fastOptions()
		opts.OnRetry = func(attempt int, err error) {
			retries = append(retries, attempt)
			assert.NotNil(t, err)
		}
		_, err := Do(context.Background(), opts, func() (int, error) {
			return 0, fmt.Errorf("always fails")
		})
		assert.NotNil(t, err)
		assert.Equal(t, []int{1, 2}, retries)
	})
	t.Run("Test that a cancelled context stops the backoff wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		opts := &Options{MaxRetries: 3, BaseDelay: time.Hour}
		_, err := Do(ctx, opts, func() (int, error) {
			calls++
			cancel()
			return 0, fmt.Errorf("failure")
		})
		assert.Equal(t, context.Canceled, err)
		assert.Equal(t, 1, calls)
	})
	t.Run("Test that nil options fall back to the defaults", func(t *testing.T) {
		result, err := Do(context.Background(), nil, func() (bool, error) {
			return true, nil
		})
		assert.Nil(t, err)
		assert.True(t, result)
	})
}

func fastOptions() *Options {
	return &Options{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
	}
}
