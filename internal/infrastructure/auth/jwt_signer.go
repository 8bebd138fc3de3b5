// Package auth signs exchange API requests with short-lived ES256 JWTs.
package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

const (
	// DefaultIssuer identifies the developer platform that issued the key.
	DefaultIssuer = "cdp"
	// MaxTokenTTL is the longest lifetime the exchange accepts.
	MaxTokenTTL = 2 * time.Minute

	nonceBytes = 16
)

// JWTSigner implements port.TokenSigner. It holds no mutable state; nonces come from crypto/rand.
type JWTSigner struct {
	keyName string
	key     *ecdsa.PrivateKey
	issuer  string
	ttl     time.Duration
	now     func() time.Time
	nonce   func() (string, error)
}

// Option customizes a JWTSigner.
type Option func(*JWTSigner)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) Option {
	return func(s *JWTSigner) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTTL sets the token lifetime. Values outside (0, MaxTokenTTL] are clamped.
func WithTTL(ttl time.Duration) Option {
	return func(s *JWTSigner) {
		switch {
		case ttl <= 0:
		case ttl > MaxTokenTTL:
			s.ttl = MaxTokenTTL
		default:
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *JWTSigner) { s.now = now }
}

// WithNonceSource replaces the random nonce generator.
func WithNonceSource(nonce func() (string, error)) Option {
	return func(s *JWTSigner) { s.nonce = nonce }
}

// requestClaims binds the token to one request target.
type requestClaims struct {
	URI string `json:"uri"`
	jwt.RegisteredClaims
}

// NewJWTSigner decodes privateKey (base64 DER or PEM-wrapped, SEC1 or PKCS#8) and returns a
// signer for keyName. It fails with *entity.KeyFormatError when the key is unusable.
func NewJWTSigner(keyName, privateKey string, opts ...Option) (port.TokenSigner, error) {
	if strings.TrimSpace(keyName) == "" {
		return nil, &entity.KeyFormatError{Reason: "key name is empty"}
	}
	key, err := ParseECPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	s := &JWTSigner{
		keyName: keyName,
		key:     key,
		issuer:  DefaultIssuer,
		ttl:     MaxTokenTTL,
		now:     time.Now,
		nonce:   randomHexNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign implements port.TokenSigner. The uri claim is "<METHOD> <path>".
func (s *JWTSigner) Sign(method, path string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" || strings.TrimSpace(path) == "" {
		return "", &entity.SigningError{Err: errors.New("method and path are required")}
	}
	if strings.ContainsRune(path, '?') {
		return "", &entity.SigningError{Err: errors.New("path must not contain a query string")}
	}

	nonce, err := s.nonce()
	if err != nil {
		return "", &entity.SigningError{Err: fmt.Errorf("nonce generation: %w", err)}
	}

	now := s.now()
	claims := requestClaims{
		URI: method + " " + path,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   s.keyName,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.keyName
	token.Header["nonce"] = nonce

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", &entity.SigningError{Err: err}
	}
	return signed, nil
}

// ParseECPrivateKey strips any PEM envelope, base64-decodes the body and parses a P-256 key.
func ParseECPrivateKey(material string) (*ecdsa.PrivateKey, error) {
	body := stripPEMEnvelope(material)
	if body == "" {
		return nil, &entity.KeyFormatError{Reason: "key material is empty"}
	}

	der, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, &entity.KeyFormatError{Reason: "key is not valid base64", Err: err}
	}

	key, err := x509.ParseECPrivateKey(der)
	if err != nil {
		parsed, pkcs8Err := x509.ParsePKCS8PrivateKey(der)
		if pkcs8Err != nil {
			return nil, &entity.KeyFormatError{Reason: "key is neither SEC1 nor PKCS#8", Err: err}
		}
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, &entity.KeyFormatError{Reason: fmt.Sprintf("key type %T is not ECDSA", parsed)}
		}
		key = ecKey
	}

	if key.Curve != elliptic.P256() {
		return nil, &entity.KeyFormatError{Reason: fmt.Sprintf("curve %s is not P-256", key.Curve.Params().Name)}
	}
	return key, nil
}

// stripPEMEnvelope drops "-----BEGIN/END ...-----" lines and all whitespace. Escaped "\n"
// sequences, common when keys travel through environment variables, count as line breaks.
func stripPEMEnvelope(material string) string {
	material = strings.ReplaceAll(material, `\n`, "\n")
	var b strings.Builder
	for _, line := range strings.Split(material, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		b.WriteString(strings.Join(strings.Fields(line), ""))
	}
	return b.String()
}

func randomHexNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
