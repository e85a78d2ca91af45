package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestProvider(t *testing.T) {
	t.Run("base includes version path", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v4/models", r.URL.Path)
			require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"data":[{"id":"glm-4"},{"id":"glm-4-air"}]}`)
		}))
		t.Cleanup(srv.Close)

		res := TestProvider(context.Background(), srv.URL+"/v4/", "sk-test")
		require.True(t, res.Success)
		require.Equal(t, 2, res.ModelsFound)
	})

	t.Run("falls back to v1 models", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/models" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"data":[{"id":"llama3"}]}`)
		}))
		t.Cleanup(srv.Close)

		res := TestProvider(context.Background(), srv.URL, "sk-test")
		require.True(t, res.Success)
		require.Equal(t, 1, res.ModelsFound)
	})

	t.Run("bad key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		res := TestProvider(context.Background(), srv.URL, "sk-wrong")
		require.False(t, res.Success)
		require.Contains(t, res.Message, "check your API key")
	})

	t.Run("nothing listening", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		res := TestProvider(context.Background(), srv.URL, "sk-test")
		require.False(t, res.Success)
		require.Contains(t, res.Message, "Could not connect")
	})

	t.Run("missing inputs", func(t *testing.T) {
		res := TestProvider(context.Background(), "", "")
		require.False(t, res.Success)
		require.Contains(t, res.Message, "required")
	})

	t.Run("no models route anywhere", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		res := TestProvider(context.Background(), srv.URL, "sk-test")
		require.False(t, res.Success)
		require.Contains(t, res.Message, "404")
	})
}
