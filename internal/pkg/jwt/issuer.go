package jwt

import (
	"bytes"
	"time"
)

// IssuerConfig holds both secrets and lifetimes of a token pair.
type IssuerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audiences     []string
	Clock         clocker
	UUID          generator
}

// Issuer mints access/refresh token pairs and rotates access tokens.
// Tokens are stateless; nothing is persisted.
type Issuer struct {
	access  *Symmetric
	refresh *Symmetric
}

// NewIssuer builds an Issuer. The two secrets must differ.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, ErrSecretReused
	}

	access, err := NewHS512(SymmetricConfig{
		Secret:    cfg.AccessSecret,
		Issuer:    cfg.Issuer,
		Audiences: cfg.Audiences,
		Kind:      KindAccess,
		TTL:       cfg.AccessTTL,
		Clock:     cfg.Clock,
		UUID:      cfg.UUID,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := NewHS512(SymmetricConfig{
		Secret:    cfg.RefreshSecret,
		Issuer:    cfg.Issuer,
		Audiences: cfg.Audiences,
		Kind:      KindRefresh,
		TTL:       cfg.RefreshTTL,
		Clock:     cfg.Clock,
		UUID:      cfg.UUID,
	})
	if err != nil {
		return nil, err
	}

	return &Issuer{access: access, refresh: refresh}, nil
}

// IssuePair mints an access token and a refresh token bound to identity.
func (i *Issuer) IssuePair(identity string) (TokenPair, error) {
	at, atExp, err := i.access.Sign(identity)
	if err != nil {
		return TokenPair{}, err
	}

	rt, rtExp, err := i.refresh.Sign(identity)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      at,
		AccessExpiresAt:  atExp,
		RefreshToken:     rt,
		RefreshExpiresAt: rtExp,
	}, nil
}

// RotateAccess verifies a refresh token and mints a new access token for the
// same identity. The refresh token itself is not reissued. Any verification
// failure is reported as ErrInvalidToken.
func (i *Issuer) RotateAccess(refreshToken string) (string, time.Time, Claims, error) {
	claims, err := i.refresh.Verify(refreshToken)
	if err != nil {
		return "", time.Time{}, Claims{}, ErrInvalidToken
	}

	at, exp, err := i.access.Sign(claims.Subject)
	if err != nil {
		return "", time.Time{}, Claims{}, err
	}

	return at, exp, claims, nil
}

// VerifyAccess validates an access token.
func (i *Issuer) VerifyAccess(token string) (Claims, error) {
	return i.access.Verify(token)
}
