package conn

import (
	"time"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/framework/config"
	"github.com/cloudvault/enginecore/util"
)

// retrier wraps a single call with exponential backoff, grounded on
// go-fed-apcore/framework/conn/retrier.go's reattemptBackoff shape but
// narrowed from a background polling loop over persisted delivery
// failures to a synchronous wrapper around one outbound call — this
// engine's API_CLIENT retries inline rather than queuing for later
// (spec.md §7: "retry up to five round-trips before failing").
type retrier struct {
	maxAttempts int
	baseDelay   time.Duration
}

func newRetrier(c *config.Config) *retrier {
	return &retrier{
		maxAttempts: c.ApiClientConfig.MaxRetries,
		baseDelay:   time.Duration(c.ApiClientConfig.RetryBaseDelayMillis) * time.Millisecond,
	}
}

// Do invokes fn, retrying on a transport error up to maxAttempts times
// with exponential backoff. Non-transport errors (config, API, crypto,
// resource, lookup) are not retryable and return immediately.
func (r *retrier) Do(c util.Context, fn func() error) error {
	delay := r.baseDelay
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !errs.IsTransport(err) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-c.Done():
			return errs.ErrTransport.WithDetail(c.Err().Error())
		}
		delay += delay
	}
	return err
}
