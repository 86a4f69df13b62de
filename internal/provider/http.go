package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const userAgent = "ip-identifier/1.0"

// maxBody bounds provider payloads; every response we parse is tiny.
const maxBody = 1 << 20

// Family selects which address family an outbound connection may use.
type Family string

const (
	FamilyAny  Family = "any"
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// NewHTTPClient returns a client whose connections are pinned to family.
// A client for ipv6 can only succeed on hosts with IPv6 connectivity, which
// makes echo services report the address of that family.
func NewHTTPClient(family Family) *http.Client {
	dialer := &net.Dialer{
		Timeout:   6 * time.Second,
		KeepAlive: 15 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			switch family {
			case FamilyIPv4:
				return dialer.DialContext(ctx, "tcp4", addr)
			case FamilyIPv6:
				return dialer.DialContext(ctx, "tcp6", addr)
			default:
				return dialer.DialContext(ctx, network, addr)
			}
		},
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

// get performs one GET and returns the trimmed body, classifying every
// failure into a provider *Error.
func get(ctx context.Context, name string, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail(name, ErrUnreachable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fail(name, transportKind(ctx, err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fail(name, transportKind(ctx, err), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg != "" {
			return nil, fail(name, ErrStatus, fmt.Errorf("%s: %s", resp.Status, msg))
		}
		return nil, fail(name, ErrStatus, errors.New(resp.Status))
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, malformed(name, "empty response body")
	}
	return []byte(trimmed), nil
}

func transportKind(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnreachable
}
