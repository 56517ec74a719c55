package connect

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/clientcredentials"
)

// Token type labels expected by the SQL API's authorization header.
const (
	TokenTypeKeyPair = "KEYPAIR_JWT"
	TokenTypeOAuth   = "OAUTH"
)

const keyPairTokenTTL = 59 * time.Minute

// BearerToken acquires a bearer token for the SQL API together with its
// token-type label. Key-pair contexts issue a short-lived RS256 JWT whose
// issuer embeds the public key fingerprint; OAuth2 contexts run the
// client-credentials grant against TokenURL.
func (c *Context) BearerToken(ctx context.Context) (token string, tokenType string, err error) {
	if c.UsesKeyPair() {
		tok, err := c.signKeyPairJWT(time.Now())
		if err != nil {
			return "", "", err
		}
		return tok, TokenTypeKeyPair, nil
	}

	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return "", "", &AuthenticationError{Reason: "oauth2 token acquisition failed", Err: err}
	}
	if !tok.Valid() || strings.TrimSpace(tok.AccessToken) == "" {
		return "", "", &AuthenticationError{Reason: "oauth2 endpoint returned an invalid token"}
	}
	return tok.AccessToken, TokenTypeOAuth, nil
}

// signKeyPairJWT creates the RS256 token: sub is ACCOUNT.USER and iss is
// ACCOUNT.USER.SHA256:<public key fingerprint>, both uppercased.
func (c *Context) signKeyPairJWT(now time.Time) (string, error) {
	key, err := parseRSAPrivateKey(c.PrivateKeyPEM)
	if err != nil {
		return "", &AuthenticationError{Reason: "unable to parse private key", Err: err}
	}

	fp, err := publicKeyFingerprint(&key.PublicKey)
	if err != nil {
		return "", &AuthenticationError{Reason: "unable to fingerprint public key", Err: err}
	}

	qualified := strings.ToUpper(c.Account) + "." + strings.ToUpper(c.User)
	claims := jwt.MapClaims{
		"iss": qualified + ".SHA256:" + fp,
		"sub": qualified,
		"iat": now.Unix(),
		"exp": now.Add(keyPairTokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := t.SignedString(key)
	if err != nil {
		return "", &AuthenticationError{Reason: "unable to sign key-pair token", Err: err}
	}
	return signed, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS8 key is not RSA")
		}
		return rsaKey, nil
	}
	// Legacy PKCS1 keys are still around in CI secrets
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func publicKeyFingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
