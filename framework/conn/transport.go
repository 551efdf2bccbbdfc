package conn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/framework/config"
	"github.com/cloudvault/enginecore/util"
)

// Controller is the pooled, rate-limited, retried outbound transport this
// engine uses to reach the metadata API and raw content hosts (spec.md §2,
// §6's API_CLIENT collaborator). Grounded on
// go-fed-apcore/framework/conn/transport.go's Controller/transport split,
// narrowed from ActivityPub HTTP-signature delivery to opaque JSON calls
// plus raw byte-range streaming.
type Controller struct {
	client    *http.Client
	limiter   *hostLimiter
	retrier   *retrier
	apiHost   string
	userAgent string
}

// PooledConn is a checked-out handle on the underlying *http.Client; it
// carries no state of its own because net/http already pools connections
// per host, but it gives call sites an explicit release_good/release_bad
// point, matching spec.md §2's connection lifecycle.
type PooledConn struct {
	host string
}

func NewController(c *config.Config) *Controller {
	ctl := &Controller{
		client: &http.Client{
			Timeout: time.Duration(c.ApiClientConfig.RequestTimeoutSecs) * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: c.ApiClientConfig.MaxIdleConnsPerHost,
			},
		},
		limiter:   newHostLimiter(c),
		apiHost:   c.ApiClientConfig.APIHost,
		userAgent: "enginecore-client/1",
	}
	ctl.retrier = newRetrier(c)
	return ctl
}

func (ctl *Controller) Start() {
	ctl.limiter.Start()
}

func (ctl *Controller) Stop() {
	ctl.limiter.Stop()
}

// Acquire checks out a connection slot for host, waiting on the per-host
// rate limiter before returning. Call ReleaseGood or ReleaseBad exactly
// once per Acquire once the call using it has finished.
func (ctl *Controller) Acquire(c util.Context, host string) (*PooledConn, error) {
	if err := ctl.limiter.Get(host).Wait(c); err != nil {
		return nil, errs.ErrTransport.WithDetail(err.Error())
	}
	return &PooledConn{host: host}, nil
}

// ReleaseGood returns conn to the pool having succeeded; currently a no-op
// beyond documenting intent, since net/http's own transport already
// manages keep-alive reuse per host.
func (ctl *Controller) ReleaseGood(conn *PooledConn) {}

// ReleaseBad returns conn to the pool having failed; future revisions may
// use this to penalize the host's rate limiter or force a fresh dial.
func (ctl *Controller) ReleaseBad(conn *PooledConn) {}

// doJSON performs a single JSON request/response round-trip against path,
// retried per ctl.retrier's policy (spec.md §7: transport errors on
// setup/start/key-fetch retry up to five times before surfacing).
func (ctl *Controller) doJSON(c util.Context, method, path string, reqBody, respBody interface{}) error {
	conn, err := ctl.Acquire(c, ctl.apiHost)
	if err != nil {
		return err
	}
	err = ctl.retrier.Do(c, func() error {
		var buf bytes.Buffer
		if reqBody != nil {
			if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
				return errs.ErrTransport.WithDetail(err.Error())
			}
		}
		req, err := http.NewRequestWithContext(c, method, ctl.apiHost+path, &buf)
		if err != nil {
			return errs.ErrTransport.WithDetail(err.Error())
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ctl.userAgent)
		resp, err := ctl.client.Do(req)
		if err != nil {
			return errs.ErrTransport.WithDetail(err.Error())
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return errs.ErrTransport.WithDetail(fmt.Sprintf("server error status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			var apiErr errs.APIError
			if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != 0 {
				return &apiErr
			}
			return errs.ErrServerProtocol.WithDetail(fmt.Sprintf("status %d", resp.StatusCode))
		}
		if respBody != nil {
			if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
				return errs.ErrTransport.WithDetail(err.Error())
			}
		}
		return nil
	})
	if err != nil {
		ctl.ReleaseBad(conn)
		return err
	}
	ctl.ReleaseGood(conn)
	return nil
}

// StreamRange opens a raw GET to the given content-host URL requesting
// bytes [offset, offset+length), used by PAGE_CACHE's network fetch path
// (spec.md §4.3.4). The caller must Close the returned reader.
func (ctl *Controller) StreamRange(c util.Context, rawURL string, offset, length int64) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.ErrTransport.WithDetail(err.Error())
	}
	conn, err := ctl.Acquire(c, u.Host)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(c, http.MethodGet, rawURL, nil)
	if err != nil {
		ctl.ReleaseBad(conn)
		return nil, errs.ErrTransport.WithDetail(err.Error())
	}
	if length > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	req.Header.Set("User-Agent", ctl.userAgent)
	resp, err := ctl.client.Do(req)
	if err != nil {
		ctl.ReleaseBad(conn)
		return nil, errs.ErrTransport.WithDetail(err.Error())
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		ctl.ReleaseBad(conn)
		return nil, errs.ErrTransport.WithDetail(fmt.Sprintf("range read status %d", resp.StatusCode))
	}
	ctl.ReleaseGood(conn)
	return resp.Body, nil
}
