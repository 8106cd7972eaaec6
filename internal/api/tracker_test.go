package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"susu-dfs-console/internal/https"
	"susu-dfs-console/internal/model"
)

type call struct {
	Path    string
	Method  https.Method
	Payload any
	CT      https.ContentType
}

type fakeRequester struct {
	calls []call
	body  []model.StorageModel
	err   error
}

func (f *fakeRequester) Request(_ context.Context, path string, method https.Method, payload any, ct https.ContentType, out any) error {
	f.calls = append(f.calls, call{Path: path, Method: method, Payload: payload, CT: ct})
	if f.err != nil {
		return f.err
	}
	*(out.(*[]model.StorageModel)) = append([]model.StorageModel(nil), f.body...)
	return nil
}

type fakeSelector struct {
	selected []bool
	r        *fakeRequester
}

func (s *fakeSelector) Select(secure bool) https.Requester {
	s.selected = append(s.selected, secure)
	return s.r
}

func TestQueryTreeIssuesOneFormGet(t *testing.T) {
	sel := &fakeSelector{r: &fakeRequester{}}

	_, err := QueryTree(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, []bool{false}, sel.selected)
	require.Len(t, sel.r.calls, 1)
	assert.Equal(t, call{
		Path:    "tracker/tree",
		Method:  https.MethodGet,
		Payload: https.Params{},
		CT:      https.ContentTypeForm,
	}, sel.r.calls[0])
}

func TestQueryTreeReturnsNodesInOrder(t *testing.T) {
	nodes := []model.StorageModel{
		{ClientID: 3, Name: "c"},
		{ClientID: 1, Name: "a"},
		{ClientID: 2, Name: "b"},
	}
	sel := &fakeSelector{r: &fakeRequester{body: nodes}}

	got, err := QueryTree(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, nodes, got)
}

func TestQueryTreePropagatesErrorUnchanged(t *testing.T) {
	want := &https.StatusError{Method: https.MethodGet, Path: "tracker/tree", StatusCode: 500, Status: "500 Internal Server Error"}
	sel := &fakeSelector{r: &fakeRequester{err: want}}

	got, err := QueryTree(context.Background(), sel)
	assert.Nil(t, got)
	assert.Same(t, want, err)
}

func TestQueryTreeDoesNotCache(t *testing.T) {
	sel := &fakeSelector{r: &fakeRequester{body: []model.StorageModel{{ClientID: 1}}}}

	_, err := QueryTree(context.Background(), sel)
	require.NoError(t, err)
	_, err = QueryTree(context.Background(), sel)
	require.NoError(t, err)

	assert.Len(t, sel.r.calls, 2)
	assert.Equal(t, []bool{false, false}, sel.selected)
}

func TestQueryTreeAgainstTracker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tracker/tree", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"clientId":2,"name":"storage-b","host":"10.0.0.2","port":5671,"status":2},
			{"clientId":1,"name":"storage-a","host":"10.0.0.1","port":5671,"status":3}
		]`)
	}))
	defer srv.Close()

	f, err := https.NewFactory(https.Options{BaseURL: srv.URL + "/api/", Token: "only-for-secure"})
	require.NoError(t, err)

	got, err := QueryTree(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []model.StorageModel{
		{ClientID: 2, Name: "storage-b", Host: "10.0.0.2", Port: 5671, Status: model.StorageStatusUp},
		{ClientID: 1, Name: "storage-a", Host: "10.0.0.1", Port: 5671, Status: model.StorageStatusDown},
	}, got)

	_, err = QueryTree(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestQueryTreeAgainstFailingTracker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := https.NewFactory(https.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	direct := f.Select(false)

	_, err = QueryTree(context.Background(), f)
	_, directErr := https.Request[[]model.StorageModel](context.Background(), direct, TrackerTreePath, https.MethodGet, https.Params{}, https.ContentTypeForm)

	var statusErr *https.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, directErr, err)
}
