// Package token issues time-bounded capability tokens for the media
// provider. A token grants one identity the right to join, publish, and
// subscribe in one named room for 24 hours.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when the signing key material is absent.
// main treats this as fatal at startup; Issue still reports it per-call.
var ErrNotConfigured = errors.New("media credentials not configured")

const tokenTTL = 24 * time.Hour

// VideoGrant is the room capability embedded in the token.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

// Claims is the decoded token payload.
type Claims struct {
	TokenID   string     `json:"jti"`
	Issuer    string     `json:"iss"`
	Subject   string     `json:"sub"`
	IssuedAt  int64      `json:"iat"`
	ExpiresAt int64      `json:"exp"`
	Video     VideoGrant `json:"video"`
}

// Credentials is an issued token plus the endpoint to present it to.
type Credentials struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// Issuer signs capability tokens with the media provider's API secret.
// It holds no mutable state; Issue is safe for concurrent use.
type Issuer struct {
	apiKey    string
	apiSecret string
	url       string
	now       func() time.Time
}

func NewIssuer(apiKey, apiSecret, url string) *Issuer {
	return &Issuer{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		url:       url,
		now:       time.Now,
	}
}

// Configured reports whether signing key material is present.
func (i *Issuer) Configured() bool {
	return i.apiKey != "" && i.apiSecret != ""
}

// URL returns the configured media endpoint.
func (i *Issuer) URL() string {
	return i.url
}

// Issue builds a signed token for identity in room. Token bytes are
// opaque to callers; only the decoded claims are contractual.
func (i *Issuer) Issue(identity, room string) (Credentials, error) {
	if !i.Configured() {
		return Credentials{}, ErrNotConfigured
	}

	iat := i.now().Unix()
	claims := Claims{
		TokenID:   uuid.New().String(),
		Issuer:    i.apiKey,
		Subject:   identity,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(tokenTTL/time.Second),
		Video: VideoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}

	tok, err := i.sign(claims)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: tok, URL: i.url, Identity: identity, Room: room}, nil
}

// sign produces a JWS compact serialization (HS256).
func (i *Issuer) sign(claims Claims) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)

	signingInput := header + "." + body
	mac := hmac.New(sha256.New, []byte(i.apiSecret))
	mac.Write([]byte(signingInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

// Decode verifies the signature and returns the claims. Used by tests and
// diagnostic tooling; the serving path never decodes its own tokens.
func (i *Issuer) Decode(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, errors.New("malformed token")
	}

	mac := hmac.New(sha256.New, []byte(i.apiSecret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return Claims{}, errors.New("signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode payload: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("unmarshal claims: %w", err)
	}
	return claims, nil
}
