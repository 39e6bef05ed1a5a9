// Package http builds the outbound client used for acquirer calls.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig holds the transport settings of an acquirer client
type HTTPClientConfig struct {
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MinTLSVersion         uint16
	DisableCompression    bool
}

// AcquirerClientConfig returns settings for a few acquirer hosts with bursty concurrency.
// Authorizations may take most of the request budget, so the header timeout is long.
func AcquirerClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             60 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 27 * time.Second,
		MinTLSVersion:         tls.VersionTLS12,
		DisableCompression:    true, // payloads are encrypted
	}
}

// NewHTTPClient creates a pooled client. timeout caps each call end to end;
// the per-request context deadline is usually shorter.
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    cfg.DisableCompression,
		TLSClientConfig:       &tls.Config{MinVersion: cfg.MinTLSVersion},
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
