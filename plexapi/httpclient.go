package plexapi

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	plexHTTPClientTimeout         = 20 * time.Second
	plexHTTPDialTimeout           = 5 * time.Second
	plexHTTPKeepAlive             = 30 * time.Second
	plexHTTPTLSHandshakeTimeout   = 5 * time.Second
	plexHTTPResponseHeaderTimeout = 10 * time.Second
	plexHTTPExpectContinueTimeout = 1 * time.Second
	plexHTTPIdleConnTimeout       = 90 * time.Second
)

var plexHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   plexHTTPDialTimeout,
		KeepAlive: plexHTTPKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   plexHTTPTLSHandshakeTimeout,
	ResponseHeaderTimeout: plexHTTPResponseHeaderTimeout,
	ExpectContinueTimeout: plexHTTPExpectContinueTimeout,
	IdleConnTimeout:       plexHTTPIdleConnTimeout,
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = plexHTTPClientTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: plexHTTPTransport,
	}
}

func newRetryableHTTPClient(retryMax int, timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient(timeout)

	return retryClient.StandardClient()
}
