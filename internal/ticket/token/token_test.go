package token_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/campustix/campustix/internal/ticket/token"
)

func TestMintParseRoundTrip(t *testing.T) {
	codec := token.NewCodec("top-secret")
	claims := token.Claims{TicketID: 101, OrderID: 202, EventID: 303, IssuedAt: 1767225600}

	qr, err := codec.Mint(claims)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	parsed, err := codec.Parse(qr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != claims {
		t.Fatalf("claims mismatch: %+v vs %+v", parsed, claims)
	}
}

func TestMintRejectsUnboundClaims(t *testing.T) {
	codec := token.NewCodec("top-secret")
	for _, claims := range []token.Claims{
		{OrderID: 202, EventID: 303},
		{TicketID: 101, EventID: 303},
		{TicketID: 101, OrderID: 202},
	} {
		if _, err := codec.Mint(claims); !errors.Is(err, token.ErrInvalidToken) {
			t.Fatalf("mint %+v: expected ErrInvalidToken, got %v", claims, err)
		}
	}
}

func TestParseRejectsTamperedBody(t *testing.T) {
	codec := token.NewCodec("top-secret")
	qr, err := codec.Mint(token.Claims{TicketID: 101, OrderID: 202, EventID: 303})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	parts := strings.Split(qr, ".")
	forged, err := json.Marshal(token.Claims{TicketID: 999, OrderID: 202, EventID: 303})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + parts[1]
	if _, err := codec.Parse(tampered); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	qr, err := token.NewCodec("secret-a").Mint(token.Claims{TicketID: 101, OrderID: 202, EventID: 303})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := token.NewCodec("secret-b").Parse(qr); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	codec := token.NewCodec("top-secret")
	for _, raw := range []string{"", "nodot", "a.b.c", "!!!.sig"} {
		if _, err := codec.Parse(raw); !errors.Is(err, token.ErrInvalidToken) {
			t.Fatalf("parse %q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}
