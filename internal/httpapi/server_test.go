package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmylchreest/vidwall/internal/httpapi/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerRoutes(t *testing.T) {
	srv := NewServer(DefaultServerConfig(), nil, "test")
	handlers.NewHealthHandler("test").Register(srv.API())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	t.Run("livez", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/livez")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("request id passthrough", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/livez", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "fixed-id")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}
