// Package httpclient issues calls against the exchange REST API and decodes their bodies.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
	"portfolio_tracker/internal/pkg/utils"
)

// json matches field names case-insensitively, like encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "portfolio-tracker/1.0"

// Request describes one outbound call.
//
// fasthttp takes no context, so cancelling the caller's context only stops a call before it
// is sent (at the rate limiter wait). A call already on the wire runs until the earlier of
// the context deadline and the executor timeout.
type Request struct {
	Method string
	// Host overrides the executor's default host. It carries no scheme.
	Host string
	// Path starts with "/" and never contains a query string.
	Path  string
	Query url.Values
	// RequiresAuth attaches a bearer token signed for Method and Host+Path.
	RequiresAuth bool
	// Route is a low-cardinality label for metrics, e.g. "accounts".
	Route string
}

// Config tunes the executor.
type Config struct {
	Scheme             string
	Host               string
	Timeout            time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Executor sends requests through a shared fasthttp client and a token-bucket limiter.
type Executor struct {
	client  *fasthttp.Client
	scheme  string
	host    string
	timeout time.Duration
	signer  port.TokenSigner
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewExecutor creates an Executor. signer may be nil when only public endpoints are called.
func NewExecutor(cfg Config, signer port.TokenSigner, logger *zap.Logger) *Executor {
	scheme := strings.ToLower(strings.TrimSpace(cfg.Scheme))
	if scheme == "" {
		scheme = "https"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Executor{
		client: &fasthttp.Client{
			Name:                     userAgent,
			NoDefaultUserAgentHeader: true,
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
		},
		scheme:  scheme,
		host:    strings.TrimRight(cfg.Host, "/"),
		timeout: timeout,
		signer:  signer,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("Executor"),
	}
}

// Host returns the default upstream host.
func (e *Executor) Host() string {
	return e.host
}

// Do sends req and returns the body of a 2xx response. See Request for how ctx bounds it.
func (e *Executor) Do(ctx context.Context, req Request) ([]byte, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = fasthttp.MethodGet
	}
	host := req.Host
	if host == "" {
		host = e.host
	}
	route := req.Route
	if route == "" {
		route = "other"
	}

	if err := ctx.Err(); err != nil {
		return nil, &entity.TransportError{Method: method, Path: req.Path, Err: err}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &entity.TransportError{Method: method, Path: req.Path, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	httpReq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(httpReq)
	httpReq.Header.SetMethod(method)
	httpReq.Header.Set(fasthttp.HeaderAccept, "application/json")

	requestURL := e.scheme + "://" + host + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}
	httpReq.SetRequestURI(requestURL)

	if req.RequiresAuth {
		if e.signer == nil {
			return nil, &entity.SigningError{Err: errors.New("no signer configured for authenticated request")}
		}
		token, err := e.signer.Sign(method, host+req.Path)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}

	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(httpResp)

	e.logger.Debug("Sending request",
		zap.String("method", method),
		zap.String("host", host),
		zap.String("path", req.Path),
		zap.Bool("authenticated", req.RequiresAuth))

	started := time.Now()
	deadline := started.Add(e.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	err := e.client.DoDeadline(httpReq, httpResp, deadline)
	metrics.UpstreamLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(route, "transport_error").Inc()
		e.logger.Warn("Request failed at transport level",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, &entity.TransportError{Method: method, Path: req.Path, Err: err}
	}

	// The response buffer goes back to the pool on return.
	body := append([]byte(nil), httpResp.Body()...)
	status := httpResp.StatusCode()

	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		metrics.UpstreamRequests.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()
		excerpt := utils.Excerpt(body, utils.DefaultExcerptLength)
		e.logger.Warn("Upstream returned non-success status",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Int("statusCode", status),
			zap.String("bodyExcerpt", excerpt))
		return nil, &entity.UpstreamError{
			Status:      status,
			Reason:      fasthttp.StatusMessage(status),
			BodyExcerpt: excerpt,
			Path:        req.Path,
		}
	}

	metrics.UpstreamRequests.WithLabelValues(route, "ok").Inc()
	return body, nil
}

// Execute sends req and decodes the body into T. An empty or null body is a *entity.DecodeError.
func Execute[T any](ctx context.Context, e *Executor, req Request) (T, error) {
	var out T
	body, err := e.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := Decode(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Decode unmarshals body into out, rejecting empty and null documents.
func Decode[T any](body []byte, out *T) error {
	target := fmt.Sprintf("%T", *out)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &entity.DecodeError{TargetType: target, RawBody: string(trimmed)}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &entity.DecodeError{
			TargetType: target,
			RawBody:    utils.Excerpt(trimmed, utils.DefaultExcerptLength),
			Err:        err,
		}
	}
	return nil
}
