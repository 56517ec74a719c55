package connect

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), key
}

func TestFromEnv_MissingRequired(t *testing.T) {
	for _, name := range []string{EnvAccount, EnvAccountURL, EnvUser, EnvPrivateKey, EnvTokenURL, EnvClientID, EnvClientSecret} {
		t.Setenv(name, "")
	}
	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error with empty environment")
	}
	var aerr *AuthenticationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
}

func TestFromEnv_KeyPairComplete(t *testing.T) {
	pemKey, _ := testKeyPEM(t)
	t.Setenv(EnvAccount, "myorg-myaccount")
	t.Setenv(EnvAccountURL, "")
	t.Setenv(EnvUser, "DEPLOY_BOT")
	t.Setenv(EnvPrivateKey, pemKey)
	t.Setenv(EnvRole, "DEPLOY_ROLE")
	t.Setenv(EnvWarehouse, "DEPLOY_WH")
	t.Setenv(EnvDatabase, "ANALYTICS")
	t.Setenv(EnvSchema, "DEV")
	t.Setenv(EnvTokenURL, "")
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !c.UsesKeyPair() {
		t.Fatalf("expected key-pair auth")
	}
	if got := c.BaseURL(); got != "https://myorg-myaccount.snowflakecomputing.com" {
		t.Fatalf("BaseURL() = %q", got)
	}
}

func TestValidate_IncompleteOAuth(t *testing.T) {
	c := &Context{Account: "acct", User: "bot", TokenURL: "https://idp/token"}
	err := c.Validate()
	var aerr *AuthenticationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthenticationError for partial oauth config, got %v", err)
	}
}

func TestBaseURL_ExplicitOverrideWins(t *testing.T) {
	c := &Context{AccountURL: "http://127.0.0.1:9292/"}
	if got := c.BaseURL(); got != "http://127.0.0.1:9292" {
		t.Fatalf("BaseURL() = %q", got)
	}
}

func TestSignKeyPairJWT_ClaimsShape(t *testing.T) {
	pemKey, key := testKeyPEM(t)
	c := &Context{Account: "acct", User: "bot", PrivateKeyPEM: pemKey}

	now := time.Now()
	signed, err := c.signKeyPairJWT(now)
	if err != nil {
		t.Fatalf("signKeyPairJWT: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token should verify with the matching public key: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "ACCT.BOT" {
		t.Fatalf("sub = %v, want ACCT.BOT", claims["sub"])
	}
	iss, _ := claims["iss"].(string)
	if !strings.HasPrefix(iss, "ACCT.BOT.SHA256:") {
		t.Fatalf("iss = %q, want fingerprint-qualified issuer", iss)
	}
	exp, _ := claims["exp"].(float64)
	if int64(exp) <= now.Unix() {
		t.Fatalf("exp must be in the future")
	}
}

func TestBearerToken_KeyPairType(t *testing.T) {
	pemKey, _ := testKeyPEM(t)
	c := &Context{Account: "acct", User: "bot", PrivateKeyPEM: pemKey}
	tok, typ, err := c.BearerToken(t.Context())
	if err != nil {
		t.Fatalf("BearerToken: %v", err)
	}
	if typ != TokenTypeKeyPair || tok == "" {
		t.Fatalf("expected keypair token, got type %q", typ)
	}
}

func TestParseRSAPrivateKey_Garbage(t *testing.T) {
	if _, err := parseRSAPrivateKey("not a key"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
