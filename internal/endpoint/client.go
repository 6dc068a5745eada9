// Package endpoint talks to DeepLX-compatible translation endpoints.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/httpclient"
	"github.com/oukeidos/mdtrans/internal/logger"
)

// Family selects request headers for an endpoint.
type Family string

const (
	FamilyDeepLX  Family = "deeplx"
	FamilyDpTrans Family = "dptrans"
)

const (
	dptransAccept    = "application/json, text/plain, */*"
	dptransUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxErrorSnippet  = 512
)

// DetectFamily picks dptrans for URLs that mention it, DeepLX otherwise.
func DetectFamily(endpointURL string) Family {
	if strings.Contains(strings.ToLower(endpointURL), "dptrans") {
		return FamilyDpTrans
	}
	return FamilyDeepLX
}

// Request is the JSON body shared by both families.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Config describes one endpoint and language pair.
type Config struct {
	URL        string
	SourceLang string
	TargetLang string
	// Token is sent as a bearer token when set.
	Token string
	// HTTPClient defaults to httpclient.GetDefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	url    string
	family Family
	source string
	target string
	token  string
	http   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint URL must use http or https, got %q", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint URL has no host: %q", cfg.URL)
	}
	if strings.TrimSpace(cfg.TargetLang) == "" {
		return nil, fmt.Errorf("target language is required")
	}
	source := strings.TrimSpace(cfg.SourceLang)
	if source == "" {
		source = "auto"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpclient.GetDefaultClient()
	}
	return &Client{
		url:    u.String(),
		family: DetectFamily(u.String()),
		source: source,
		target: strings.TrimSpace(cfg.TargetLang),
		token:  strings.TrimSpace(cfg.Token),
		http:   hc,
	}, nil
}

// Family reports the detected endpoint family.
func (c *Client) Family() Family { return c.family }

// Name identifies the backend in cache keys and logs.
func (c *Client) Name() string { return string(c.family) }

// Translate performs exactly one remote call. Retrying is the caller's job.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(Request{
		Text:       text,
		SourceLang: c.source,
		TargetLang: c.target,
	})
	if err != nil {
		return "", apperrors.Generic(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Generic(fmt.Errorf("failed to create request: %w", err))
	}
	c.setHeaders(req)

	logger.Debug("Sending translation request",
		"family", c.family,
		"bytes", len(text),
		"chars", uniseg.GraphemeClusterCount(text),
	)

	body, resp, err := httpclient.DoAndRead(c.http, req)
	if err != nil {
		if resp != nil {
			return "", apperrors.Transport(fmt.Errorf("status %d: %w", resp.StatusCode, err))
		}
		return "", apperrors.Transport(err)
	}
	logger.Debug("Endpoint responded", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.API(resp.StatusCode, "Translation endpoint returned an error status",
			fmt.Errorf("%s: %s", resp.Status, snippet(body)))
	}
	return Decode(body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	switch c.family {
	case FamilyDpTrans:
		req.Header.Set("Accept", dptransAccept)
		req.Header.Set("User-Agent", dptransUserAgent)
	default:
		req.Header.Set("Accept", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorSnippet {
		return s
	}
	cut := maxErrorSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
