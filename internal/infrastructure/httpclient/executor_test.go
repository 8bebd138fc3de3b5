package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
)

type recordingSigner struct {
	method, path string
	err          error
}

func (s *recordingSigner) Sign(method, path string) (string, error) {
	s.method, s.path = method, path
	if s.err != nil {
		return "", s.err
	}
	return "signed-token", nil
}

func newTestExecutor(t *testing.T, srv *httptest.Server, signer *recordingSigner) *Executor {
	t.Helper()
	cfg := Config{Scheme: "http", Host: strings.TrimPrefix(srv.URL, "http://"), Timeout: 2 * time.Second}
	if signer == nil {
		return NewExecutor(cfg, nil, zap.NewNop())
	}
	return NewExecutor(cfg, signer, zap.NewNop())
}

type payload struct {
	Data struct {
		Amount string `json:"amount"`
	} `json:"data"`
}

func TestExecute_SignsPathWithoutQuery(t *testing.T) {
	var gotAuth, gotQuery, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"data":{"amount":"42.5"}}`))
	}))
	defer srv.Close()

	signer := &recordingSigner{}
	exec := newTestExecutor(t, srv, signer)

	out, err := Execute[payload](context.Background(), exec, Request{
		Method:       http.MethodGet,
		Path:         "/v2/accounts",
		Query:        url.Values{"limit": {"100"}},
		RequiresAuth: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "42.5", out.Data.Amount)

	assert.Equal(t, "Bearer signed-token", gotAuth)
	assert.Equal(t, "limit=100", gotQuery)
	assert.Equal(t, "/v2/accounts", gotPath)
	assert.Equal(t, "GET", signer.method)
	assert.Equal(t, exec.Host()+"/v2/accounts", signer.path)
}

func TestExecute_PublicRequestHasNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"amount":"1"}}`))
	}))
	defer srv.Close()

	signer := &recordingSigner{}
	_, err := Execute[payload](context.Background(), newTestExecutor(t, srv, signer), Request{Path: "/v2/prices/BTC-USD/spot"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Empty(t, signer.path)
}

func TestExecute_DecodesCaseInsensitively(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"DATA":{"Amount":"7"}}`))
	}))
	defer srv.Close()

	out, err := Execute[payload](context.Background(), newTestExecutor(t, srv, nil), Request{Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, "7", out.Data.Amount)
}

func TestExecute_ServerErrorWithHTMLIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer srv.Close()

	_, err := Execute[payload](context.Background(), newTestExecutor(t, srv, nil), Request{Path: "/v2/accounts"})

	var upstream *entity.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Equal(t, "Internal Server Error", upstream.Reason)
	assert.Equal(t, "<html>boom</html>", upstream.BodyExcerpt)
	assert.Equal(t, "/v2/accounts", upstream.Path)

	var decodeErr *entity.DecodeError
	assert.False(t, errors.As(err, &decodeErr))
}

func TestExecute_NotFoundIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"id":"not_found"}]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Execute[payload](context.Background(), newTestExecutor(t, srv, nil), Request{Path: "/v2/accounts/x/transactions"})
	var upstream *entity.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.True(t, upstream.IsPermissionOrNotFound())
}

func TestExecute_ShapeMismatchIsDecodeError(t *testing.T) {
	for name, body := range map[string]string{
		"wrong type": `{"data":"not-an-object"}`,
		"not json":   `<html>ok</html>`,
		"null":       `null`,
		"empty":      ``,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := Execute[payload](context.Background(), newTestExecutor(t, srv, nil), Request{Path: "/x"})
			var decodeErr *entity.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "httpclient.payload", decodeErr.TargetType)
		})
	}
}

func TestExecute_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	exec := newTestExecutor(t, srv, nil)
	srv.Close()

	_, err := Execute[payload](context.Background(), exec, Request{Path: "/v2/accounts"})
	var transport *entity.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "GET", transport.Method)
	assert.Equal(t, "/v2/accounts", transport.Path)
}

func TestExecute_CancelledContextSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute[payload](ctx, newTestExecutor(t, srv, nil), Request{Path: "/x"})
	var transport *entity.TransportError
	require.ErrorAs(t, err, &transport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func TestExecute_InFlightCallBoundByContextDeadline(t *testing.T) {
	srv := slowServer(t)
	exec := newTestExecutor(t, srv, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := Execute[payload](ctx, exec, Request{Path: "/slow"})
	var transport *entity.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Less(t, time.Since(started), time.Second)
}

func TestExecute_InFlightCallBoundByTimeout(t *testing.T) {
	srv := slowServer(t)
	exec := NewExecutor(Config{Scheme: "http", Host: strings.TrimPrefix(srv.URL, "http://"), Timeout: 100 * time.Millisecond}, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	started := time.Now()
	_, err := Execute[payload](ctx, exec, Request{Path: "/slow"})
	var transport *entity.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Less(t, time.Since(started), time.Second)
}

func TestExecute_SignerFailureIsReturned(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	signer := &recordingSigner{err: &entity.SigningError{Err: errors.New("bad key")}}
	_, err := Execute[payload](context.Background(), newTestExecutor(t, srv, signer), Request{Path: "/x", RequiresAuth: true})
	var signErr *entity.SigningError
	require.ErrorAs(t, err, &signErr)
	assert.Zero(t, hits.Load())

	_, err = Execute[payload](context.Background(), newTestExecutor(t, srv, nil), Request{Path: "/x", RequiresAuth: true})
	require.ErrorAs(t, err, &signErr)
}
