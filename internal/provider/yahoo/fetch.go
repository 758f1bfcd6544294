package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"yfquotes/internal/provider"
)

// ServiceUnavailable is the error text reported when the endpoint cannot be
// reached or answers with a non-success status.
const ServiceUnavailable = "Yahoo Finance service not available!"

// envelope is the subset of the quote response that is consumed.
//
//	{"quoteResponse": {"result": [...], "error": null}}
type envelope struct {
	QuoteResponse *quoteResponse `json:"quoteResponse"`
}

type quoteResponse struct {
	Result []provider.Record `json:"result"`
	Error  json.RawMessage   `json:"error"`
}

// QuoteURL returns the request URL for symbols, comma-joined in input order.
// Each symbol is query-escaped on its own so the separators stay literal.
func (c *Client) QuoteURL(symbols []string) string {
	escaped := make([]string, len(symbols))
	for i, s := range symbols {
		escaped[i] = url.QueryEscape(s)
	}
	return c.baseURL + strings.Join(escaped, ",")
}

// Fetch requests quotes for symbols.
//
// Transport and service failures never surface as a Go error: they are turned
// into an error payload of the same shape the service uses, and that payload
// goes through the regular decoding path. An error is returned only when a body
// cannot be decoded, which wraps provider.ErrDecode.
func (c *Client) Fetch(ctx context.Context, symbols []string) (provider.Result, error) {
	body := c.get(ctx, c.QuoteURL(symbols))
	return decode(body)
}

func (c *Client) get(ctx context.Context, requestURL string) []byte {
	log := c.logger.WithField("url", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		log.WithError(err).Warn("creating quote request")
		return errorPayload(err.Error())
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("performing quote request")
		return errorPayload(ServiceUnavailable)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.WithField("status", res.StatusCode).Warn("unexpected quote response status")
		return errorPayload(ServiceUnavailable)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		log.WithError(err).Warn("reading quote response")
		return errorPayload(err.Error())
	}
	return b
}

// errorPayload builds {"quoteResponse":{"result":[],"error":msg}}.
func errorPayload(msg string) []byte {
	b, _ := json.Marshal(map[string]any{
		"quoteResponse": map[string]any{
			"result": []any{},
			"error":  msg,
		},
	})
	return b
}

func decode(body []byte) (provider.Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return provider.Result{}, fmt.Errorf("%w: %v", provider.ErrDecode, err)
	}
	if env.QuoteResponse == nil {
		return provider.Result{}, fmt.Errorf("%w: missing quoteResponse", provider.ErrDecode)
	}

	return provider.Result{
		Records: env.QuoteResponse.Result,
		Error:   errorText(env.QuoteResponse.Error),
	}, nil
}

// errorText maps the raw error value: null or missing is absent, a string is
// taken verbatim, anything else is kept as its JSON text.
func errorText(raw json.RawMessage) *string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	return &trimmed
}
