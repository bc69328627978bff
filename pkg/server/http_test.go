package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bantudesa/pkg/config"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/health"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func TestRouterServesOperationalEndpoints(t *testing.T) {
	r := NewRouter(RouterParams{Config: &config.Config{}, Health: health.ProvideHealth(health.HealthParams{})})

	for _, path := range []string{"/metrics", "/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAPIGroupRendersErrors(t *testing.T) {
	r := NewRouter(RouterParams{Config: &config.Config{}})
	NewAPIGroup(r).GET("/ping", func(c *gin.Context) {
		_ = c.Error(errutil.Conflict("busy", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, APIPrefix+"/ping", nil))
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestNewHttpServerUsesConfiguredAddr(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Addr = "9090"
	srv := NewHttpServer(Params{Config: cfg, Handler: NewRouter(RouterParams{Config: cfg})})
	require.Equal(t, ":9090", srv.server.Addr)
	require.Nil(t, srv.server.TLSConfig)
}
