package https

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type recorder struct {
	mu   sync.Mutex
	reqs []capturedRequest
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, capturedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.RawQuery,
		Header: req.Header.Clone(),
		Body:   string(body),
	})
}

func (r *recorder) all() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedRequest(nil), r.reqs...)
}

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newFactory(t *testing.T, baseURL, token string) *Factory {
	t.Helper()
	f, err := NewFactory(Options{BaseURL: baseURL, Token: token})
	require.NoError(t, err)
	return f
}

func TestRequestGetFormWithEmptyParams(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"name":"a"},{"name":"b"}]`)
	})
	f := newFactory(t, srv.URL+"/api/", "")

	out, err := Request[[]map[string]string](context.Background(), f.Select(false), "tracker/tree", MethodGet, Params{}, ContentTypeForm)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"name": "a"}, {"name": "b"}}, out)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/api/tracker/tree", reqs[0].Path)
	assert.Empty(t, reqs[0].Query)
	assert.Empty(t, reqs[0].Body)
	assert.Equal(t, string(ContentTypeForm), reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
	_, err = uuid.Parse(reqs[0].Header.Get(headerRequestID))
	assert.NoError(t, err)
}

func TestRequestFormParamsPlacement(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newFactory(t, srv.URL, "").Select(false)
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "tracker/ls", MethodGet, Params{"path": "/susu/a b"}, ContentTypeForm, nil))
	require.NoError(t, c.Request(ctx, "tracker/mkdir", MethodPost, url.Values{"path": {"/susu/x"}}, ContentTypeForm, nil))
	require.NoError(t, c.Request(ctx, "tracker/rm", MethodDelete, map[string]string{"path": "/susu/y"}, ContentTypeForm, nil))

	reqs := rec.all()
	require.Len(t, reqs, 3)
	assert.Equal(t, "path=%2Fsusu%2Fa+b", reqs[0].Query)
	assert.Empty(t, reqs[0].Body)
	assert.Empty(t, reqs[1].Query)
	assert.Equal(t, "path=%2Fsusu%2Fx", reqs[1].Body)
	assert.Equal(t, "path=%2Fsusu%2Fy", reqs[2].Query)
}

func TestRequestJSONBody(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	c := newFactory(t, srv.URL, "").Select(false)

	out, err := Request[map[string]bool](context.Background(), c, "tracker/rename", MethodPut, map[string]string{"from": "a", "to": "b"}, ContentTypeJSON)
	require.NoError(t, err)
	assert.True(t, out["ok"])

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, string(ContentTypeJSON), reqs[0].Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	assert.Equal(t, map[string]string{"from": "a", "to": "b"}, body)
}

func TestRequestRejectsBadFormPayload(t *testing.T) {
	c := newFactory(t, "http://127.0.0.1:1", "").Select(false)

	err := c.Request(context.Background(), "tracker/tree", MethodGet, []int{1}, ContentTypeForm, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "form payload must be")
}

func TestRequestStatusError(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "tracker exploded", http.StatusInternalServerError)
	})
	c := newFactory(t, srv.URL, "").Select(false)

	_, err := Request[[]string](context.Background(), c, "tracker/tree", MethodGet, Params{}, ContentTypeForm)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, MethodGet, statusErr.Method)
	assert.Equal(t, "tracker/tree", statusErr.Path)
	assert.Equal(t, "tracker exploded", statusErr.Body)
	assert.Contains(t, err.Error(), "500")
}

func TestRequestStatusErrorTruncatesBody(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", 4*maxErrorBody))
	})
	c := newFactory(t, srv.URL, "").Select(false)

	err := c.Request(context.Background(), "tracker/tree", MethodGet, nil, ContentTypeForm, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, statusErr.Body, maxErrorBody)
}

func TestRequestDecodeError(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"not":"an array"}`)
	})
	c := newFactory(t, srv.URL, "").Select(false)

	_, err := Request[[]string](context.Background(), c, "tracker/tree", MethodGet, Params{}, ContentTypeForm)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestRequestEmptyBodyLeavesOutUntouched(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newFactory(t, srv.URL, "").Select(false)

	out, err := Request[[]string](context.Background(), c, "tracker/tree", MethodGet, Params{}, ContentTypeForm)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRequestTransportErrorKeepsCause(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {})
	c := newFactory(t, srv.URL, "").Select(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Request(ctx, "tracker/tree", MethodGet, Params{}, ContentTypeForm, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSecureProfileAttachesToken(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	f := newFactory(t, srv.URL, "tok")

	_, err := Request[[]string](context.Background(), f.Select(true), "tracker/tree", MethodGet, Params{}, ContentTypeForm)
	require.NoError(t, err)
	_, err = Request[[]string](context.Background(), f.Select(false), "tracker/tree", MethodGet, Params{}, ContentTypeForm)
	require.NoError(t, err)

	reqs := rec.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer tok", reqs[0].Header.Get("Authorization"))
	assert.Empty(t, reqs[1].Header.Get("Authorization"))
}

func TestSecureProfileWithoutToken(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, _ *http.Request) {})
	f := newFactory(t, srv.URL, "")

	err := f.Select(true).Request(context.Background(), "tracker/tree", MethodGet, Params{}, ContentTypeForm, nil)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, rec.all())
}

func TestNewFactoryValidatesURL(t *testing.T) {
	_, err := NewFactory(Options{})
	assert.ErrorIs(t, err, ErrNoTrackerURL)

	_, err = NewFactory(Options{BaseURL: "tracker:8080"})
	assert.Error(t, err)

	c, err := NewClient(Options{BaseURL: "https://tracker/api"}, true)
	require.NoError(t, err)
	assert.True(t, c.Secure())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestCustomTransportIsUsed(t *testing.T) {
	boom := errors.New("boom")
	f, err := NewFactory(Options{
		BaseURL:   "http://tracker.invalid/api/",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom }),
	})
	require.NoError(t, err)

	err = f.Select(false).Request(context.Background(), "tracker/tree", MethodGet, Params{}, ContentTypeForm, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRequestCreatesClientSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	srv, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	c := newFactory(t, srv.URL+"/api/", "").Select(false)

	_, err := Request[[]string](context.Background(), c, "tracker/tree", MethodGet, Params{}, ContentTypeForm)
	require.NoError(t, err)
	require.NoError(t, tp.ForceFlush(context.Background()))

	names := []string{}
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "GET /api/tracker/tree")
}
