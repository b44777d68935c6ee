package engine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/models"
	"github.com/vigil-dev/vigil/internal/types"
)

// maxBodyBytes bounds how much of a response body is read for assertion
// evaluation. The stored preview is truncated further.
const maxBodyBytes = 1 << 20 // 1MB

// Outcome is the result of a single probe attempt.
type Outcome struct {
	Success        bool
	StatusCode     *int
	ResponseTimeMS int64
	Error          string
	Body           string

	// Interrupted marks a probe cut short by the caller's context, not
	// by the monitor's own timeout. It says nothing about the endpoint,
	// so the pipeline must not record it as a failed check.
	Interrupted bool
}

// Prober issues one bounded-duration HTTP request per monitor.
type Prober struct {
	client *http.Client
}

func NewProber() *Prober {
	return &Prober{
		client: &http.Client{
			// Per-monitor deadlines come from the request context;
			// the client itself carries no timeout.
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
			},
		},
	}
}

// Run probes the monitor's endpoint. The URL is validated first; a
// blocked or malformed URL is an immediate failure outcome with no
// network call. Any HTTP response, whatever the status code, is a
// success outcome; acceptability is the assertion evaluator's job.
func (p *Prober) Run(ctx context.Context, monitor *models.Monitor) Outcome {
	if err := ValidateURL(monitor.URL); err != nil {
		return Outcome{Success: false, Error: err.Error()}
	}

	return p.execute(ctx, monitor)
}

func (p *Prober) execute(parent context.Context, monitor *models.Monitor) Outcome {
	timeout := monitor.Timeout()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var body io.Reader
	if monitor.Body != "" && (monitor.Method == http.MethodPost || monitor.Method == http.MethodPut) {
		body = strings.NewReader(monitor.Body)
	}

	req, err := http.NewRequestWithContext(ctx, monitor.Method, monitor.URL, body)
	if err != nil {
		return Outcome{Success: false, Error: fmt.Sprintf("Failed to build request: %v", err)}
	}

	for key, value := range monitor.HeaderMap() {
		req.Header.Set(key, value)
	}
	if body != nil && monitor.ContentType != "" {
		req.Header.Set("Content-Type", monitor.ContentType)
	}
	// Always last so monitor headers cannot override it.
	req.Header.Set("User-Agent", types.UserAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		elapsed := time.Since(start)

		// The parent expiring mid-probe is a batch-level cutoff; only the
		// monitor's own timeout may be reported as an endpoint timeout.
		if parent.Err() != nil {
			return Outcome{
				Success:        false,
				ResponseTimeMS: elapsed.Milliseconds(),
				Error:          "Check interrupted before completion",
				Interrupted:    true,
			}
		}

		return Outcome{
			Success:        false,
			ResponseTimeMS: elapsed.Milliseconds(),
			Error:          classifyError(err, timeout),
		}
	}
	defer resp.Body.Close()

	// Best effort: a body read failure does not fail the probe.
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)

	status := resp.StatusCode
	return Outcome{
		Success:        true,
		StatusCode:     &status,
		ResponseTimeMS: elapsed.Milliseconds(),
		Body:           string(bodyBytes),
	}
}

// classifyError maps transport failures to stable, human-readable
// reasons.
func classifyError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Timeout after %dms", timeout.Milliseconds())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
	}

	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError
	var certInvalidErr x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) || errors.As(err, &certInvalidErr) {
		return "TLS certificate verification failed"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Connection refused"
	case strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:"):
		return "TLS certificate verification failed"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Connection timed out"
	}

	return fmt.Sprintf("Request failed: %v", err)
}

// TruncateBody clips a response body to the stored preview length,
// appending a marker when content was dropped.
func TruncateBody(body string) string {
	if len(body) <= types.ResponseBodyPreviewLen {
		return body
	}
	return body[:types.ResponseBodyPreviewLen] + "... (truncated)"
}
