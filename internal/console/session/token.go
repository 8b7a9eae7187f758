package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Audience binds session tokens to the console so a token minted for another
// purpose with the same key is rejected.
const Audience = "console:session"

const nonceBytes = 16

// Claims is the JWT body of a session token. The subject is the agent's NIP
// and the JWT ID is the session id.
type Claims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// Token is a decoded session token. It never carries the secret.
type Token struct {
	Subject   string
	SessionID string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokenizer mints and verifies HS256-signed session tokens.
type Tokenizer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenizer returns a Tokenizer signing with key. Tokens expire ttl after
// they are minted.
func NewTokenizer(key []byte, ttl time.Duration) (*Tokenizer, error) {
	if len(key) == 0 {
		return nil, errors.New("session signing key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Tokenizer{key: key, ttl: ttl, now: time.Now}, nil
}

// Mint signs a fresh token for subject. Every call draws a new nonce.
func (t *Tokenizer) Mint(subject, sessionID string) (string, *Token, error) {
	nonce, err := common.MakeRandHexString(nonceBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := t.now().Truncate(time.Second)
	tok := &Token{
		Subject:   subject,
		SessionID: sessionID,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(t.ttl),
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tok.Subject,
			ID:        tok.SessionID,
			IssuedAt:  jwt.NewNumericDate(tok.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
			Audience:  jwt.ClaimStrings{Audience},
		},
		Nonce: nonce,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, tok, nil
}

// Parse verifies the signature, audience and expiry of s. Expired tokens
// yield common.ErrTokenExpired; anything else that fails yields
// common.ErrInvalidToken.
func (t *Tokenizer) Parse(s string) (*Token, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(s, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.key, nil
	},
		jwt.WithAudience(Audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Token{
		Subject:   claims.Subject,
		SessionID: claims.ID,
		Nonce:     claims.Nonce,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
