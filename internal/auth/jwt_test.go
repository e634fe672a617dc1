package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerify(t *testing.T) {
	j := JWT{Secret: []byte("secret"), TokenTTL: time.Hour}
	tok, exp, err := j.Sign(Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %s", exp)
	}
	claims, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != "admin" || claims.Subject != "ops" || claims.Issuer != issuer {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsForeignSecretAndExpiredTokens(t *testing.T) {
	j := JWT{Secret: []byte("secret")}
	other := JWT{Secret: []byte("other")}
	tok, _, err := other.Sign(Claims{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := j.Verify(tok); err == nil {
		t.Fatalf("expected signature error")
	}

	expired, _, err := j.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := j.Verify(expired); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, _, err := (JWT{}).Sign(Claims{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q)=%q want %q", in, got, want)
		}
	}
}
