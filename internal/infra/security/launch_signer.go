package security

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// LaunchParam is the query parameter that carries the signed launch token.
const LaunchParam = "tg"

var ErrInvalidLaunchToken = errors.New("invalid launch token")

type LaunchClaims struct {
	jwt.RegisteredClaims
}

// LaunchSigner appends an HS256 token identifying the Telegram user to the
// game URL so the web app can trust who opened it. Tokens carry no time
// claims, so the same user always gets the same URL.
type LaunchSigner struct {
	secret   []byte
	audience string
}

func NewLaunchSigner(secret, audience string) (*LaunchSigner, error) {
	if secret == "" {
		return nil, errors.New("launch signer: empty secret")
	}
	return &LaunchSigner{secret: []byte(secret), audience: audience}, nil
}

func (s *LaunchSigner) Token(senderID int64) (string, error) {
	claims := LaunchClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(senderID, 10),
			Audience: jwt.ClaimStrings{s.audience},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Sign returns baseURL with the launch token for senderID added to its query.
func (s *LaunchSigner) Sign(baseURL string, senderID int64) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse launch url: %w", err)
	}
	tok, err := s.Token(senderID)
	if err != nil {
		return "", fmt.Errorf("sign launch token: %w", err)
	}
	q := u.Query()
	q.Set(LaunchParam, tok)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Verify checks a token produced by Token and returns the sender id. The bot
// never calls it; it is the check the game's backend runs on the tg
// parameter, kept here next to the signing side.
func (s *LaunchSigner) Verify(tok string) (int64, error) {
	claims := &LaunchClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(s.audience))
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidLaunchToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidLaunchToken
	}
	return id, nil
}
