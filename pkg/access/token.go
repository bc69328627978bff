package access

import (
	"errors"
	"fmt"
	"time"

	"bantudesa/pkg/config"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

type profileClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// Tokens signs and verifies HS256 bearer tokens carrying an Actor.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(cfg *config.Config) (*Tokens, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH.JWT_SECRET is required")
	}
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{
		secret: []byte(cfg.Auth.JWTSecret),
		issuer: cfg.Auth.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (t *Tokens) Issue(a Actor) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: t.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := t.now()
	std := jwt.Claims{
		Subject:  a.UserID,
		Issuer:   t.issuer,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}
	profile := profileClaims{Name: a.Name, Email: a.Email, Phone: a.Phone, Role: string(a.Role)}

	return jwt.Signed(signer).Claims(std).Claims(profile).Serialize()
}

func (t *Tokens) Parse(raw string) (Actor, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var (
		std     jwt.Claims
		profile profileClaims
	)
	if err := tok.Claims(t.secret, &std, &profile); err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: t.issuer, Time: t.now()}, time.Minute); err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if std.Subject == "" {
		return Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Actor{
		UserID: std.Subject,
		Name:   profile.Name,
		Email:  profile.Email,
		Phone:  profile.Phone,
		Role:   ParseRole(profile.Role),
	}, nil
}
