package hostfuncs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tetratelabs/wazero/api"
)

const maxFetchBodyBytes = 10 * 1024 * 1024

// FetchRequestWire is the guest-to-host JSON payload for the
// network_fetch host function.
type FetchRequestWire struct {
	Method    string              `json:"method"`
	URL       string              `json:"url"`
	Headers   map[string][]string `json:"headers,omitempty"`
	Body      string              `json:"body,omitempty"` // base64
	TimeoutMs int64               `json:"timeout_ms,omitempty"`
}

// FetchResponseWire is the host-to-guest JSON result.
type FetchResponseWire struct {
	Status    int                 `json:"status,omitempty"`
	Headers   map[string][]string `json:"headers,omitempty"`
	Body      string              `json:"body,omitempty"` // base64
	Truncated bool                `json:"truncated,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// dnsPinningTransport resolves the target host once, validates the
// resolved address, and dials that exact address for every attempt
// (including redirects), so a second lookup made mid-request by a
// stock transport can never rebind past the check.
type dnsPinningTransport struct {
	base        *http.Transport
	ctx         context.Context
	componentID string
	checker     *CapabilityChecker
}

func (t *dnsPinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()

	if err := t.checker.CheckNetwork(t.componentID, hostname); err != nil {
		recordDenial(t.ctx, err)
		return nil, err
	}

	ip, err := resolvePublic(t.ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("ssrf protection: %w", err)
	}

	port := req.URL.Port()
	if port == "" {
		if req.URL.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	pinned := t.base.Clone()
	pinned.DialContext = func(dialCtx context.Context, network, _ string) (net.Conn, error) {
		d := net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		return d.DialContext(dialCtx, network, net.JoinHostPort(ip, port))
	}
	if req.URL.Scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}

	return pinned.RoundTrip(req)
}

// resolvePublic looks up hostname and returns the first address that
// is not private, loopback, link-local, or multicast.
func resolvePublic(ctx context.Context, hostname string) (string, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", hostname)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", hostname, err)
	}
	for _, ip := range ips {
		if !IsPrivateOrReservedIP(ip) {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("%q resolves only to private or reserved addresses", hostname)
}

// Fetch implements the network_fetch host function: a component makes
// an outbound HTTP request gated by its live network policy. Stack
// holds a single packed ptr+len JSON argument and receives a packed
// ptr+len JSON result.
func Fetch(ctx context.Context, mod api.Module, stack []uint64, checker *CapabilityChecker) {
	var req FetchRequestWire
	if err := readRequest(mod, stack[0], &req); err != nil {
		slog.ErrorContext(ctx, "hostfuncs: failed to read fetch request", "error", err)
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: err.Error()})
		return
	}

	componentID, _ := ComponentIDFromContext(ctx)

	parsed, err := url.Parse(req.URL)
	if err != nil {
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: fmt.Sprintf("invalid url: %v", err)})
		return
	}
	if err := checker.CheckNetwork(componentID, parsed.Hostname()); err != nil {
		slog.WarnContext(ctx, "hostfuncs: network access denied", "component_id", componentID, "host", parsed.Hostname())
		recordDenial(ctx, err)
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: err.Error()})
		return
	}

	var body io.Reader
	if req.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: fmt.Sprintf("invalid body encoding: %v", err)})
			return
		}
		body = bytes.NewReader(decoded)
	}

	timeout := 30 * time.Second
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, req.Method, req.URL, body)
	if err != nil {
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: fmt.Sprintf("building request: %v", err)})
		return
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", "wasmtool-component/1.0")

	client := &http.Client{
		Transport: &dnsPinningTransport{
			base:        &http.Transport{ForceAttemptHTTP2: true, TLSHandshakeTimeout: 10 * time.Second},
			ctx:         fetchCtx,
			componentID: componentID,
			checker:     checker,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: err.Error()})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxFetchBodyBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		stack[0] = writeResponse(ctx, mod, FetchResponseWire{Error: fmt.Sprintf("reading response body: %v", err)})
		return
	}
	truncated := len(respBody) > maxFetchBodyBytes
	if truncated {
		respBody = respBody[:maxFetchBodyBytes]
	}

	stack[0] = writeResponse(ctx, mod, FetchResponseWire{
		Status:    resp.StatusCode,
		Headers:   resp.Header,
		Body:      base64.StdEncoding.EncodeToString(respBody),
		Truncated: truncated,
	})
}
