package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/falanarofako/backend-conversational-survey/pkg/apihelpers"
)

type ClientConfig struct {
	RootURL              string
	APIKey               string
	MTLSCertificatePaths *apihelpers.CertificatePaths
	Timeout              time.Duration
}

// StatusError is returned when the remote service replies with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %.200s", e.StatusCode, e.Body)
}

type Client struct {
	config ClientConfig
	http   *http.Client
}

func NewClient(cConfig ClientConfig) (*Client, error) {
	transport, err := getTransportWithMTLSConfig(cConfig.MTLSCertificatePaths)
	if err != nil {
		slog.Error("Error creating transport with mTLS config", slog.String("error", err.Error()))
		return nil, err
	}

	client := &http.Client{
		Timeout: cConfig.Timeout,
	}
	if transport != nil {
		client.Transport = transport
	}
	return &Client{config: cConfig, http: client}, nil
}

// RunHTTPcall posts payload as JSON to RootURL+pathname and decodes the reply into out.
func (c *Client) RunHTTPcall(ctx context.Context, pathname string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := c.config.RootURL + pathname
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		slog.Error("unexpected error in preparing http request", slog.String("error", err.Error()))
		return err
	}
	if c.config.APIKey != "" {
		req.Header.Set("Api-Key", c.config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("unexpected error in http call", slog.String("url", url), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("remote service returned error status", slog.String("url", url), slog.Int("status", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("Error decoding response", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func getTransportWithMTLSConfig(mTLSCertificatePaths *apihelpers.CertificatePaths) (*http.Transport, error) {
	if mTLSCertificatePaths == nil {
		return nil, nil
	}

	tlsConfig, err := apihelpers.LoadClientTLSConfig(*mTLSCertificatePaths)
	if err != nil {
		return nil, err
	}

	return &http.Transport{
		TLSClientConfig: tlsConfig,
	}, nil
}
