package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/rpggio/libflow/internal/graphql"

	// maxResponseBytes caps how much of a backend response is read.
	maxResponseBytes = 8 << 20
)

// TokenSource supplies a bearer token for each backend request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Zero means no client-side timeout.
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *slog.Logger
	Metrics *Metrics
}

// Client sends GraphQL documents to a single endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   TokenSource
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// New creates a client for the given endpoint.
func New(endpoint string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		tokens:   opts.Tokens,
		logger:   logger,
		metrics:  opts.Metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

// Endpoint returns the backend URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type responseBody struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors,omitempty"`
}

// Request posts query with variables and decodes the data field into out,
// which may be nil. A nil variables map is sent as {}.
func (c *Client) Request(ctx context.Context, query string, variables map[string]any, out any) error {
	return c.call(ctx, "anonymous", query, variables, out)
}

// call runs a named operation and decodes data into out.
func (c *Client) call(ctx context.Context, op, query string, variables map[string]any, out any) error {
	data, err := c.do(ctx, op, query, variables)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, query string, variables map[string]any) (data json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "graphql."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("graphql.operation.name", op)),
	)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		outcome := outcomeOK
		switch {
		case err == nil:
		case IsRemote(err):
			outcome = outcomeRemote
		default:
			outcome = outcomeNetwork
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			c.logger.Debug("graphql request failed", "operation", op, "outcome", outcome, "duration", elapsed, "error", err)
		} else {
			c.logger.Debug("graphql request", "operation", op, "duration", elapsed)
		}
		c.metrics.observe(op, outcome, elapsed)
		span.End()
	}()

	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(requestBody{Query: query, Variables: variables})
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("backend token: %w", err)}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var body responseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(body.Errors) > 0 {
		return nil, &RemoteError{Op: op, Message: body.Errors[0].Message, Errors: body.Errors}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return body.Data, nil
}
