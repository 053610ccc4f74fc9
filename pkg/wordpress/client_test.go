package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:     srv.URL + "/",
		User:        "sync-bot",
		AppPassword: "abcd efgh ijkl",
		PerPage:     2,
		MaxRetries:  3,
	})
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestListTerms_Paginates(t *testing.T) {
	pages := map[string]string{
		"1": `[{"id":1,"name":"France","slug":"france","count":3},{"id":2,"name":"Italia","slug":"italia"}]`,
		"2": `[{"id":3,"name":"Espa&ntilde;a","slug":"espana","parent":1}]`,
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/province", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sync-bot", user)
		assert.Equal(t, "abcdefghijkl", pass)

		w.Header().Set("X-WP-Total", "3")
		w.Header().Set("X-WP-TotalPages", "2")
		_, _ = w.Write([]byte(pages[r.URL.Query().Get("page")]))
	}))

	terms, err := c.ListTerms(context.Background(), "province")
	require.NoError(t, err)
	require.Len(t, terms, 3)
	assert.Equal(t, "france", terms[0].Slug)
	assert.Equal(t, 3, terms[0].Count)
	assert.Equal(t, int64(1), terms[2].Parent)
	assert.Equal(t, "province", terms[2].Taxonomy)
}

func TestEachMember_StopsOnEmptyPage(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[]`))
	}))

	var got int
	err := c.EachMember(context.Background(), "confrere", func(members []Member) error {
		got += len(members)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEachMember_CallbackErrorStops(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "5")
		_, _ = fmt.Fprintf(w, `[{"id":%s}]`, r.URL.Query().Get("page"))
	}))

	stop := fmt.Errorf("stop")
	pages := 0
	err := c.EachMember(context.Background(), "confrere", func(members []Member) error {
		pages++
		if pages == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, pages)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[{"id":7,"name":"Novice","slug":"novice"}]`))
		}
	}))

	terms, err := c.ListTerms(context.Background(), "formation_state")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.ListTerms(context.Background(), "province")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"rest_no_route","message":"No route was found","data":{"status":404}}`))
	}))

	_, err := c.ListMembers(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "rest_no_route")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestContextCancelStopsRetries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.ListTerms(ctx, "province")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/", r.URL.Path)
		w.Header().Set("Content-Length", strconv.Itoa(2))
		_, _ = w.Write([]byte(`{}`))
	}))
	assert.NoError(t, c.Ping(context.Background()))
}
