package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comigor/unichat/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.RemoteConfig{Endpoint: srv.URL + "/api/ask", Timeout: time.Second})
}

func TestAnswer_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"question": "What is the fee structure?"}, req)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"PKR 180,000 per semester."}`))
	})

	got, err := c.Answer(context.Background(), "What is the fee structure?")
	require.NoError(t, err)
	require.Equal(t, "PKR 180,000 per semester.", got)
}

func TestAnswer_EmptyAnswerIsValid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":""}`))
	})

	got, err := c.Answer(context.Background(), "?")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestAnswer_Failures(t *testing.T) {
	cases := map[string]struct {
		status    int
		body      string
		malformed bool
	}{
		"server error":   {status: http.StatusInternalServerError, body: `{"answer":"no"}`},
		"not found":      {status: http.StatusNotFound, body: ``},
		"redirect code":  {status: http.StatusNotModified, body: ``},
		"not json":       {status: http.StatusOK, body: `<html>`, malformed: true},
		"missing answer": {status: http.StatusOK, body: `{"detail":"x"}`, malformed: true},
		"answer not str": {status: http.StatusOK, body: `{"answer":42}`, malformed: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := c.Answer(context.Background(), "hi")
			require.Error(t, err)
			if tc.malformed {
				require.ErrorIs(t, err, ErrMalformedAnswer)
			}
		})
	}
}

func TestAnswer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(config.RemoteConfig{Endpoint: url, Timeout: time.Second})
	_, err := c.Answer(context.Background(), "hi")
	require.Error(t, err)
}

func TestAnswer_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(config.RemoteConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Answer(context.Background(), "hi")
	require.Error(t, err)
}
