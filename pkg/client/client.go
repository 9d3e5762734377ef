// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nsm.
//
// go-nsm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package client provides a client library for the go-nsm REST server.
// Device failures reported by the server are unwrapped back into the
// pkg/nsm sentinel errors, so errors.Is works the same against a remote
// device as against a local one.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-nsm/pkg/attestation"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// DefaultAddress is the default server address.
const DefaultAddress = "http://localhost:8676"

var (
	// ErrConnectionFailed is returned when the connection to the server fails
	ErrConnectionFailed = errors.New("connection failed")
	// ErrNotConnected is returned when trying to use a client that is not connected
	ErrNotConnected = errors.New("client not connected")
)

// deviceErrors maps the device_code field of server error responses back
// to the pkg/nsm sentinels.
var deviceErrors = map[string]error{
	nsm.CodeInvalidSlot.String():   nsm.ErrInvalidSlot,
	nsm.CodeLocked.String():        nsm.ErrSlotLocked,
	nsm.CodeInvalidLength.String(): nsm.ErrInvalidLength,
	nsm.CodeCertMissing.String():   nsm.ErrCertMissing,
	nsm.CodeNoMemory.String():      nsm.ErrNoMemory,
	nsm.CodeClosed.String():        nsm.ErrSessionClosed,
}

// Config configures the client.
type Config struct {
	// Address is the server address: http://host:port or https://host:port.
	// A bare host:port defaults to http. Empty selects DefaultAddress.
	Address string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// Headers are additional HTTP headers to include in requests.
	Headers map[string]string
}

// Client talks to a go-nsm REST server.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
	connected  bool
}

// New creates a new client. Call Connect before issuing requests.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}

	baseURL := config.Address
	if baseURL == "" {
		baseURL = DefaultAddress
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		config:  config,
		baseURL: baseURL,
	}, nil
}

// Connect verifies the server is reachable via a health check.
func (c *Client) Connect(ctx context.Context) error {
	c.httpClient = &http.Client{
		Timeout: c.config.Timeout,
	}

	if _, err := c.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c.connected = true
	return nil
}

// Close releases the client's idle connections.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	c.connected = false
	return nil
}

// doRequest performs an HTTP request against the REST server.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if c.httpClient == nil {
		return nil, ErrNotConnected
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, responseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// responseError turns an error response body into a Go error, restoring
// the device sentinel when the server identified one.
func responseError(statusCode int, body []byte) error {
	var errResp struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		DeviceCode string `json:"device_code"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if sentinel, ok := deviceErrors[errResp.DeviceCode]; ok {
			return fmt.Errorf("server error: %w", sentinel)
		}
		if errResp.Message != "" {
			return fmt.Errorf("server error: %s: %s", errResp.Error, errResp.Message)
		}
		return fmt.Errorf("server error: %s", errResp.Error)
	}
	return fmt.Errorf("server returned status %d: %s", statusCode, string(body))
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func sessionPath(id string, parts ...string) string {
	path := "/api/v1/sessions/" + url.PathEscape(id)
	if len(parts) > 0 {
		path += "/" + strings.Join(parts, "/")
	}
	return path
}

// Health checks the health of the server.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSession opens a new device session on the server.
func (c *Client) CreateSession(ctx context.Context) (*SessionResponse, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/api/v1/sessions", nil)
	if err != nil {
		return nil, err
	}
	var resp SessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// ListSessions lists all open sessions.
func (c *Client) ListSessions(ctx context.Context) (*ListSessionsResponse, error) {
	var resp ListSessionsResponse
	if err := c.get(ctx, "/api/v1/sessions", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DescribeSession describes one session.
func (c *Client) DescribeSession(ctx context.Context, id string) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.get(ctx, sessionPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseSession closes a session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, sessionPath(id), nil)
	return err
}

// Random draws length random bytes from the device.
func (c *Client) Random(ctx context.Context, id string, length int) ([]byte, error) {
	data, err := c.doRequest(ctx, http.MethodPost, sessionPath(id, "random"),
		&RandomRequest{Length: length})
	if err != nil {
		return nil, err
	}
	var resp RandomResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	raw, err := hex.DecodeString(resp.Random)
	if err != nil {
		return nil, fmt.Errorf("failed to decode random bytes: %w", err)
	}
	return raw, nil
}

// PCRs returns a snapshot of the full measurement bank.
func (c *Client) PCRs(ctx context.Context, id string) (*ListPCRsResponse, error) {
	var resp ListPCRsResponse
	if err := c.get(ctx, sessionPath(id, "pcrs"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DescribePCR reads one measurement register.
func (c *Client) DescribePCR(ctx context.Context, id string, slot int) (*PCRResponse, error) {
	var resp PCRResponse
	if err := c.get(ctx, sessionPath(id, "pcrs", strconv.Itoa(slot)), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExtendPCR folds data into a measurement register and returns the new
// value.
func (c *Client) ExtendPCR(ctx context.Context, id string, slot int, data []byte) (*PCRResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, sessionPath(id, "pcrs", strconv.Itoa(slot)),
		&ExtendPCRRequest{Data: data})
	if err != nil {
		return nil, err
	}
	var resp PCRResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// LockPCR locks one measurement register.
func (c *Client) LockPCR(ctx context.Context, id string, slot int) error {
	_, err := c.doRequest(ctx, http.MethodPost,
		sessionPath(id, "pcrs", strconv.Itoa(slot), "lock"), nil)
	return err
}

// LockPCRs locks every measurement register below limit.
func (c *Client) LockPCRs(ctx context.Context, id string, limit int) error {
	_, err := c.doRequest(ctx, http.MethodPost, sessionPath(id, "pcrs", "lock"),
		&LockRangeRequest{Range: limit})
	return err
}

// LockedPCRs reports the lock state of the measurement bank.
func (c *Client) LockedPCRs(ctx context.Context, id string) (*LockedPCRsResponse, error) {
	var resp LockedPCRsResponse
	if err := c.get(ctx, sessionPath(id, "pcrs", "locked"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCertificate stores certificate data in a slot.
func (c *Client) SetCertificate(ctx context.Context, id string, slot int, data []byte) error {
	_, err := c.doRequest(ctx, http.MethodPut,
		sessionPath(id, "certificates", strconv.Itoa(slot)),
		&CertificateRequest{Data: data})
	return err
}

// Certificate reads certificate data from a slot.
func (c *Client) Certificate(ctx context.Context, id string, slot int) ([]byte, error) {
	var resp CertificateResponse
	if err := c.get(ctx, sessionPath(id, "certificates", strconv.Itoa(slot)), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RemoveCertificate clears a certificate slot.
func (c *Client) RemoveCertificate(ctx context.Context, id string, slot int) error {
	_, err := c.doRequest(ctx, http.MethodDelete,
		sessionPath(id, "certificates", strconv.Itoa(slot)), nil)
	return err
}

// ListCertificates lists occupied certificate slots.
func (c *Client) ListCertificates(ctx context.Context, id string) (*ListCertificatesResponse, error) {
	var resp ListCertificatesResponse
	if err := c.get(ctx, sessionPath(id, "certificates"), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Attest builds an attestation document over the session's device state.
// req may be nil.
func (c *Client) Attest(ctx context.Context, id string, req *AttestationRequest) (*attestation.Document, error) {
	if req == nil {
		req = &AttestationRequest{}
	}
	data, err := c.doRequest(ctx, http.MethodPost, sessionPath(id, "attestation"), req)
	if err != nil {
		return nil, err
	}
	var doc attestation.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &doc, nil
}

// AttestationDigest returns the aggregate digest over the measurement
// bank.
func (c *Client) AttestationDigest(ctx context.Context, id string) ([]byte, error) {
	var resp DigestResponse
	if err := c.get(ctx, sessionPath(id, "digest"), &resp); err != nil {
		return nil, err
	}
	sum, err := hex.DecodeString(resp.Digest)
	if err != nil {
		return nil, fmt.Errorf("failed to decode digest: %w", err)
	}
	return sum, nil
}
