package conn

import (
	"testing"
	"time"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/framework/config"
	"github.com/cloudvault/enginecore/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetrier() *retrier {
	c := &config.Config{}
	c.ApiClientConfig = config.DefaultApiClientConfig()
	c.ApiClientConfig.MaxRetries = 3
	c.ApiClientConfig.RetryBaseDelayMillis = 1
	return newRetrier(c)
}

func TestRetrierRetriesTransportErrors(t *testing.T) {
	r := testRetrier()
	attempts := 0
	err := r.Do(util.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errs.ErrCannotConnect
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrierStopsOnNonTransportError(t *testing.T) {
	r := testRetrier()
	attempts := 0
	err := r.Do(util.Background(), func() error {
		attempts++
		return errs.ErrBadPassword
	})
	assert.ErrorIs(t, err, errs.ErrBadPassword)
	assert.Equal(t, 1, attempts)
}

func TestRetrierGivesUpAfterMaxAttempts(t *testing.T) {
	r := testRetrier()
	attempts := 0
	err := r.Do(util.Background(), func() error {
		attempts++
		return errs.ErrCannotConnect
	})
	assert.ErrorIs(t, err, errs.ErrCannotConnect)
	assert.Equal(t, 3, attempts)
}

func TestHostLimiterReusesLimiterPerHost(t *testing.T) {
	c := &config.Config{}
	c.ApiClientConfig = config.DefaultApiClientConfig()
	c.ApiClientConfig.RateLimitQPS = 1000
	c.ApiClientConfig.RateLimitBurst = 1000
	c.ApiClientConfig.RateLimiterPruneSecs = 1

	hl := newHostLimiter(c)
	hl.Start()
	defer hl.Stop()

	a := hl.Get("host-a")
	b := hl.Get("host-a")
	assert.Same(t, a, b)

	other := hl.Get("host-b")
	assert.NotSame(t, a, other)

	time.Sleep(time.Millisecond)
}
