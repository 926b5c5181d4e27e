package geotab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

const (
	apiPath    = "/apiv1"
	thisServer = "ThisServer"
	dateLayout = "2006-01-02T15:04:05.000Z"
)

// Credentials is the credentials object the API expects on every call.
type Credentials struct {
	Database  string `json:"database"`
	UserName  string `json:"userName"`
	SessionID string `json:"sessionId,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Session is an authenticated handle bound to the server that owns the
// database.
type Session struct {
	Credentials Credentials
	Server      string
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// APIError is a JSON-RPC error returned by the API.
type APIError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Errors  []struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s: %s", e.Errors[0].Name, e.Errors[0].Message)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// authFailure reports whether the API rejected the credentials or session.
func (e *APIError) authFailure() bool {
	for _, inner := range e.Errors {
		switch inner.Name {
		case "InvalidUserException", "DbUnavailableException":
			return true
		}
	}
	return e.Name == "InvalidUserException"
}

// Client talks to the Geotab JSON-RPC endpoint. It never retries.
type Client struct {
	http   *resty.Client
	cfg    config.GeotabConfig
	logger zerolog.Logger
}

// NewClient creates a new MyGeotab API client
func NewClient(cfg config.GeotabConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With().Str("component", "geotab").Logger(),
	}
}

func endpoint(server string) string {
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return strings.TrimSuffix(server, "/") + apiPath
	}
	return "https://" + server + apiPath
}

// Authenticate exchanges the configured credentials for a session.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	const op = "geotab.Authenticate"

	params := map[string]any{
		"database": c.cfg.Database,
		"userName": c.cfg.Username,
		"password": c.cfg.Password,
	}
	var result struct {
		Credentials Credentials `json:"credentials"`
		Path        string      `json:"path"`
	}
	if err := c.call(ctx, c.cfg.Server, "Authenticate", params, &result); err != nil {
		if isAuthFailure(err) {
			return nil, domain.E(domain.KindAuthentication, op, err)
		}
		return nil, domain.E(domain.KindFetch, op, err)
	}
	if result.Credentials.SessionID == "" {
		return nil, domain.Errorf(domain.KindAuthentication, op, "no session returned for user %q", c.cfg.Username)
	}

	server := c.cfg.Server
	if result.Path != "" && result.Path != thisServer {
		server = result.Path
	}
	c.logger.Debug().Str("server", server).Str("database", result.Credentials.Database).Msg("authenticated")

	return &Session{Credentials: result.Credentials, Server: server}, nil
}

// FetchSince returns entities of typeName whose event time is at or after
// from. A positive limit caps the number of records; ordering is whatever the
// server returns.
func (c *Client) FetchSince(ctx context.Context, s *Session, typeName string, from time.Time, limit int) ([]domain.Record, error) {
	params := map[string]any{
		"typeName":    typeName,
		"search":      map[string]any{"fromDate": from.UTC().Format(dateLayout)},
		"credentials": s.Credentials,
	}
	if limit > 0 {
		params["resultsLimit"] = limit
	}

	var records []domain.Record
	if err := c.call(ctx, s.Server, "Get", params, &records); err != nil {
		return nil, classify("geotab.FetchSince", err)
	}
	c.logger.Debug().Str("type", typeName).Time("from", from).Int("count", len(records)).Msg("fetched")
	return records, nil
}

// Get lists entities of typeName without a search filter.
func (c *Client) Get(ctx context.Context, s *Session, typeName string, limit int) ([]domain.Record, error) {
	params := map[string]any{
		"typeName":    typeName,
		"credentials": s.Credentials,
	}
	if limit > 0 {
		params["resultsLimit"] = limit
	}

	var records []domain.Record
	if err := c.call(ctx, s.Server, "Get", params, &records); err != nil {
		return nil, classify("geotab.Get", err)
	}
	return records, nil
}

type feedResult struct {
	Data      []domain.Record `json:"data"`
	ToVersion string          `json:"toVersion"`
}

func (c *Client) getFeed(ctx context.Context, s *Session, typeName, fromVersion string, limit int) (*feedResult, error) {
	params := map[string]any{
		"typeName":     typeName,
		"resultsLimit": limit,
		"credentials":  s.Credentials,
	}
	if fromVersion != "" {
		params["fromVersion"] = fromVersion
	}

	var out feedResult
	if err := c.call(ctx, s.Server, "GetFeed", params, &out); err != nil {
		return nil, classify("geotab.GetFeed", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, server, method string, params, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{Method: method, Params: params}).
		Post(endpoint(server))
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	if resp.IsError() {
		return &httpStatusError{method: method, code: resp.StatusCode()}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Result))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

type httpStatusError struct {
	method string
	code   int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.method, e.code, http.StatusText(e.code))
}

func (e *httpStatusError) unauthorized() bool {
	return e.code == http.StatusUnauthorized || e.code == http.StatusForbidden
}

// isAuthFailure reports whether Authenticate was refused. Any JSON-RPC error
// from Authenticate is a refusal; transport failures are not.
func isAuthFailure(err error) bool {
	switch e := err.(type) {
	case *APIError:
		return true
	case *httpStatusError:
		return e.unauthorized()
	}
	return false
}

// classify maps a failed data call: rejected sessions are authentication
// errors, everything else is a fetch error.
func classify(op string, err error) error {
	switch e := err.(type) {
	case *APIError:
		if e.authFailure() {
			return domain.E(domain.KindAuthentication, op, err)
		}
	case *httpStatusError:
		if e.unauthorized() {
			return domain.E(domain.KindAuthentication, op, err)
		}
	}
	return domain.E(domain.KindFetch, op, err)
}
