package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidToken = errors.New("invalid_ticket_token")

// Claims binds a QR token to one ticket. Possession of a token is not
// authorization; check-in re-reads ticket state by id.
type Claims struct {
	TicketID snowflake.ID `json:"tid"`
	OrderID  snowflake.ID `json:"oid"`
	EventID  snowflake.ID `json:"eid"`
	IssuedAt int64        `json:"iat"`
}

// Codec mints and parses HMAC-SHA256 signed QR tokens.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

func (c *Codec) Mint(claims Claims) (string, error) {
	if claims.TicketID == 0 || claims.OrderID == 0 || claims.EventID == 0 {
		return "", ErrInvalidToken
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + c.sign(body), nil
}

func (c *Codec) Parse(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 2 {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(c.sign(parts[0])), []byte(parts[1])) {
		return Claims{}, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.TicketID == 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
