// Package lms implements the LTI 1.1 Basic Outcomes client used to report
// grades back to the launching LMS.
package lms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 - OAuth 1.0 body signing mandates HMAC-SHA1
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencampus/gradeflow/internal/core"
)

const (
	contentType          = "application/xml"
	oauthVersion         = "1.0"
	oauthSignatureMethod = "HMAC-SHA1"
	maxErrorBodyBytes    = 512
)

// Config holds the LMS outcome client settings.
type Config struct {
	// ConsumerKey identifies this platform to the LMS.
	ConsumerKey string
	// ConsumerSecret signs outcome requests.
	ConsumerSecret string
	// Timeout bounds each HTTP request when no context deadline is tighter.
	Timeout time.Duration
}

// Client posts replaceResult requests to LTI 1.1 outcome service endpoints.
// Requests are signed with OAuth 1.0 HMAC-SHA1 including the body hash, as
// the Basic Outcomes service requires.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger

	// now and nonce are swappable for tests.
	now   func() time.Time
	nonce func() string
}

// NewClient constructs an LMS outcome client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ConsumerKey == "" {
		return nil, errors.New("consumer key is required")
	}
	if cfg.ConsumerSecret == "" {
		return nil, errors.New("consumer secret is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "lms_client"),
		now:    time.Now,
		nonce:  uuid.NewString,
	}, nil
}

// ReplaceResult reports one score to the LMS. The LMS treats replaceResult as
// an upsert, so redelivering the same sourcedid is harmless.
func (c *Client) ReplaceResult(ctx context.Context, req core.ReplaceResultRequest) error {
	if req.ServiceURL == "" {
		return errors.New("service url is required")
	}
	if req.Sourcedid == "" {
		return errors.New("sourcedid is required")
	}
	if req.Score < 0 || req.Score > 1 {
		return fmt.Errorf("score %v outside the 0-1 range", req.Score)
	}

	body, err := buildReplaceResultBody(req.Sourcedid, req.Score, c.nonce())
	if err != nil {
		return fmt.Errorf("build request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", c.authorizationHeader(req.ServiceURL, body))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post outcome: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("outcome service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	status, err := parseResponseStatus(resp.Body)
	if err != nil {
		return fmt.Errorf("parse outcome response: %w", err)
	}
	if !strings.EqualFold(status, "success") {
		return fmt.Errorf("outcome service rejected the result: %s", status)
	}

	c.logger.DebugContext(ctx, "outcome accepted",
		"sourcedid", req.Sourcedid,
		"score", req.Score,
	)

	return nil
}

// authorizationHeader builds the OAuth 1.0 header for a POX POST. The body
// hash replaces form parameters in the signature base string.
func (c *Client) authorizationHeader(serviceURL string, body []byte) string {
	bodyHash := sha1.Sum(body) // #nosec G401 - mandated by the OAuth body hash extension

	params := map[string]string{
		"oauth_consumer_key":     c.config.ConsumerKey,
		"oauth_signature_method": oauthSignatureMethod,
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_nonce":            c.nonce(),
		"oauth_version":          oauthVersion,
		"oauth_body_hash":        base64.StdEncoding.EncodeToString(bodyHash[:]),
	}

	signature := c.sign(http.MethodPost, serviceURL, params)
	params["oauth_signature"] = signature

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var header strings.Builder
	header.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			header.WriteString(", ")
		}
		header.WriteString(percentEncode(k))
		header.WriteString(`="`)
		header.WriteString(percentEncode(params[k]))
		header.WriteByte('"')
	}
	return header.String()
}

// sign computes the HMAC-SHA1 signature over the OAuth base string.
func (c *Client) sign(method, rawURL string, params map[string]string) string {
	baseURL, query := normalizeURL(rawURL)

	pairs := make([]string, 0, len(params)+len(query))
	for k, v := range params {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
	}
	for k, values := range query {
		for _, v := range values {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}
	sort.Strings(pairs)

	base := strings.Join([]string{
		method,
		percentEncode(baseURL),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	// No token secret: the outcome service uses two-legged OAuth.
	key := percentEncode(c.config.ConsumerSecret) + "&"
	mac := hmac.New(sha1.New, []byte(key)) // #nosec G401 - OAuth 1.0 requires HMAC-SHA1
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// normalizeURL splits a URL into its base form (scheme://host/path, default
// ports elided) and its query parameters, per OAuth 1.0 signature rules.
func normalizeURL(rawURL string) (string, url.Values) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, nil
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	return scheme + "://" + host + u.EscapedPath(), u.Query()
}

// percentEncode applies the RFC 5849 variant of percent encoding.
func percentEncode(s string) string {
	var out strings.Builder
	for _, b := range []byte(s) {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9',
			b == '-', b == '.', b == '_', b == '~':
			out.WriteByte(b)
		default:
			fmt.Fprintf(&out, "%%%02X", b)
		}
	}
	return out.String()
}
