// Package token issues and verifies HS256 bearer credentials.
package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrExpired indicates a well-formed credential past its expiry.
	ErrExpired = errors.New("token: expired")
	// ErrInvalid indicates a malformed, forged or wrongly scoped credential.
	ErrInvalid = errors.New("token: invalid")
)

// Claims carried by an Inkwell credential. Role is accepted from legacy
// credentials but never used for authorization.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config configures a Signer/Verifier pair.
type Config struct {
	Secret    []byte
	Audience  string
	TTL       time.Duration
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time
}

// Issued describes a freshly signed credential.
type Issued struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service signs and verifies credentials.
type Service struct {
	secret   []byte
	audience string
	ttl      time.Duration
	now      func() time.Time
	cache    *lru.LRU[string, Claims]
}

// NewService builds a Service. An empty secret is rejected.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: secret must be provided")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Service{secret: cfg.Secret, audience: cfg.Audience, ttl: cfg.TTL, now: cfg.Now}
	if cfg.CacheSize > 0 {
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = 5 * time.Minute
		}
		s.cache = lru.NewLRU[string, Claims](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return s, nil
}

// Issue signs a credential for subject. Issued credentials carry no role claim.
func (s *Service) Issue(subject, email string) (Issued, error) {
	if subject == "" {
		return Issued{}, fmt.Errorf("%w: subject required", ErrInvalid)
	}
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("token: sign: %w", err)
	}
	return Issued{Token: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm, audience and expiry. Results are cached
// by token digest; a cached entry is still re-checked against its expiry.
func (s *Service) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalid
	}
	key := digest(raw)
	if s.cache != nil {
		if claims, ok := s.cache.Get(key); ok {
			if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
				s.cache.Remove(key)
				return Claims{}, ErrExpired
			}
			return claims, nil
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	if s.cache != nil {
		s.cache.Add(key, claims)
	}
	return claims, nil
}

// Audience returns the audience stamped on issued credentials.
func (s *Service) Audience() string { return s.audience }

func digest(raw string) string {
	sum := blake2b.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
