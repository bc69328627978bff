package proof

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"bantudesa/pkg/config"
)

func TestPresenceVerifier(t *testing.T) {
	v := NewVerifier(Params{Config: &config.Config{}})

	require.ErrorIs(t, v.Verify(context.Background(), "  "), ErrMissing)
	require.NoError(t, v.Verify(context.Background(), "https://cdn.desa.id/bukti/1.jpg"))
}

func newObjectVerifier(t *testing.T, handler http.HandlerFunc) Verifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Minio.BucketName = "proofs"
	return NewVerifier(Params{Config: cfg, Minio: client})
}

func TestObjectVerifierMissingObject(t *testing.T) {
	v := newObjectVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	require.ErrorIs(t, v.Verify(context.Background(), "bukti/404.jpg"), ErrNotFound)
}

func TestObjectVerifierAcceptsURLWithoutLookup(t *testing.T) {
	called := false
	v := newObjectVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.NoError(t, v.Verify(context.Background(), "https://cdn.desa.id/bukti/1.jpg"))
	require.False(t, called)
	require.ErrorIs(t, v.Verify(context.Background(), ""), ErrMissing)
}
