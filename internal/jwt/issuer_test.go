package jwt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/minijohn/internal/claims"
)

const testIss = "http://localhost:8080"

func newTestIssuer(t *testing.T, access, identity time.Duration, mapper *claims.Mapper) *Issuer {
	t.Helper()
	iss, err := NewIssuer(IssuerConfig{Issuer: testIss, AccessTTL: access, IdentityTTL: identity}, testKeys(t), mapper)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

func decode(t *testing.T, iss *Issuer, raw string) jwtv5.MapClaims {
	t.Helper()
	mc, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return mc
}

func TestIssueTokenPair_SharedClaims(t *testing.T) {
	t.Parallel()
	iss := newTestIssuer(t, 15*time.Minute, 15*time.Minute, nil)
	auth := time.Now().Add(-time.Minute).Truncate(time.Second)

	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{
		Subject:  "1",
		ClientID: "client1",
		Audience: "example.com",
		Scope:    "openid profile",
		AuthTime: auth,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	at := decode(t, iss, pair.AccessToken)
	it := decode(t, iss, pair.IdentityToken)

	for _, k := range []string{"iss", "sub", "aud", "exp", "iat", "auth_time", "client_id", "scope"} {
		if at[k] != it[k] {
			t.Fatalf("claim %s differs: access=%v identity=%v", k, at[k], it[k])
		}
	}
	if at["aud"] != "example.com" || at["sub"] != "1" || at["iss"] != testIss {
		t.Fatalf("unexpected standard claims: %v", at)
	}
	if at["token_use"] != UseAccess || it["token_use"] != UseIdentity {
		t.Fatalf("token_use = %v / %v", at["token_use"], it["token_use"])
	}
	if at["jti"] == it["jti"] || at["jti"] == "" {
		t.Fatalf("each token needs its own jti")
	}
	if int64(at["auth_time"].(float64)) != auth.Unix() {
		t.Fatalf("auth_time = %v, want %d", at["auth_time"], auth.Unix())
	}
	if pair.ExpiresIn != 900 {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}
}

func TestIssueTokenPair_HeaderAndTTL(t *testing.T) {
	t.Parallel()
	iss := newTestIssuer(t, 60*time.Second, 300*time.Second, nil)
	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{Subject: "1", ClientID: "client1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tok, _, err := jwtv5.NewParser().ParseUnverified(pair.AccessToken, jwtv5.MapClaims{})
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if tok.Header["alg"] != "RS256" || tok.Header["typ"] != "JWT" || tok.Header["kid"] != iss.Keys().KID() {
		t.Fatalf("bad header: %v", tok.Header)
	}

	at := decode(t, iss, pair.AccessToken)
	it := decode(t, iss, pair.IdentityToken)
	if d := at["exp"].(float64) - at["iat"].(float64); d != 60 {
		t.Fatalf("access exp-iat = %v", d)
	}
	if d := it["exp"].(float64) - it["iat"].(float64); d != 300 {
		t.Fatalf("identity exp-iat = %v", d)
	}
	// sin audience configurada, aud = client_id
	if at["aud"] != "client1" {
		t.Fatalf("aud = %v", at["aud"])
	}
}

func TestIssueTokenPair_Nonce(t *testing.T) {
	t.Parallel()
	iss := newTestIssuer(t, time.Minute, time.Minute, nil)

	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{Subject: "1", ClientID: "c", Nonce: "n-0S6"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := decode(t, iss, pair.AccessToken)["nonce"]; ok {
		t.Fatalf("access token must never carry nonce")
	}
	if got := decode(t, iss, pair.IdentityToken)["nonce"]; got != "n-0S6" {
		t.Fatalf("identity nonce = %v", got)
	}

	pair, err = iss.IssueTokenPair(context.Background(), IssueRequest{Subject: "1", ClientID: "c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := decode(t, iss, pair.IdentityToken)["nonce"]; ok {
		t.Fatalf("empty nonce must be omitted")
	}
}

func TestIssueTokenPair_MappedClaims(t *testing.T) {
	t.Parallel()
	mapper, err := claims.NewMapper(claims.ClientMapping{
		Access:   claims.Mapping{"is_admin": "admin"},
		Identity: claims.Mapping{"email": "email", "name": "name"},
	}, nil)
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	iss := newTestIssuer(t, time.Minute, time.Minute, mapper)

	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{
		Subject:    "1",
		ClientID:   "client1",
		Attributes: map[string]any{"admin": true, "email": "u@example.com", "name": ""},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	at := decode(t, iss, pair.AccessToken)
	it := decode(t, iss, pair.IdentityToken)
	if at["is_admin"] != true {
		t.Fatalf("access is_admin = %v", at["is_admin"])
	}
	if _, ok := at["email"]; ok {
		t.Fatalf("email leaked into access token")
	}
	if it["email"] != "u@example.com" {
		t.Fatalf("identity email = %v", it["email"])
	}
	if _, ok := it["name"]; ok {
		t.Fatalf("empty attribute must not be emitted")
	}
	if _, ok := it["admin"]; ok {
		t.Fatalf("unmapped attribute leaked")
	}
}

func TestVerifyAccessToken_ZeroLeeway(t *testing.T) {
	t.Parallel()
	iss := newTestIssuer(t, time.Second, time.Second, nil)
	base := time.Now()
	iss.now = func() time.Time { return base }

	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{Subject: "1", ClientID: "c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := iss.VerifyAccessToken(pair.AccessToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	iss.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, err := iss.VerifyAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestVerifyAccessToken_Rejections(t *testing.T) {
	t.Parallel()
	iss := newTestIssuer(t, time.Minute, time.Minute, nil)
	pair, err := iss.IssueTokenPair(context.Background(), IssueRequest{Subject: "1", ClientID: "c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := iss.VerifyAccessToken(pair.IdentityToken); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("identity token accepted as access: %v", err)
	}

	other, err := NewIssuer(IssuerConfig{Issuer: "https://other", AccessTTL: time.Minute}, testKeys(t), nil)
	if err != nil {
		t.Fatalf("other issuer: %v", err)
	}
	if _, err := other.VerifyAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("foreign issuer accepted: %v", err)
	}

	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := iss.VerifyAccessToken(tampered); err == nil {
		t.Fatalf("tampered signature accepted")
	}

	hs := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss": testIss, "sub": "1", "exp": time.Now().Add(time.Minute).Unix(), "token_use": "access",
	})
	raw, _ := hs.SignedString([]byte("secret"))
	if _, err := iss.VerifyAccessToken(raw); err == nil {
		t.Fatalf("HS256 token accepted")
	}
}
