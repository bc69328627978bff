package proof

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bantudesa/pkg/config"

	"github.com/minio/minio-go/v7"
	"go.uber.org/fx"
)

var (
	ErrMissing  = errors.New("proof of transfer is required")
	ErrNotFound = errors.New("proof of transfer not found in storage")
)

var Module = fx.Module("proof", fx.Provide(NewVerifier))

// Verifier checks the proof-of-transfer reference attached to a donation.
type Verifier interface {
	Verify(ctx context.Context, ref string) error
}

type Params struct {
	fx.In

	Config *config.Config
	Minio  *minio.Client `optional:"true"`
}

func NewVerifier(p Params) Verifier {
	if p.Minio == nil || p.Config.Minio.BucketName == "" {
		return PresenceVerifier{}
	}
	return &ObjectVerifier{client: p.Minio, bucket: p.Config.Minio.BucketName}
}

// PresenceVerifier only requires a non-empty reference.
type PresenceVerifier struct{}

func (PresenceVerifier) Verify(_ context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return ErrMissing
	}
	return nil
}

// ObjectVerifier accepts absolute URLs as-is and stats bare object keys in the
// proof bucket.
type ObjectVerifier struct {
	client *minio.Client
	bucket string
}

func (v *ObjectVerifier) Verify(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrMissing
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return nil
	}

	_, err := v.client.StatObject(ctx, v.bucket, strings.TrimPrefix(ref, "/"), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
			return ErrNotFound
		}
		return err
	}
	return nil
}
