package connect

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables supplying the connection context. They are owned by
// the surrounding CI system; this component only reads them once, at the
// edge, and passes an explicit Context down the call chain.
const (
	EnvAccount      = "DAGDEPLOY_ACCOUNT"
	EnvAccountURL   = "DAGDEPLOY_ACCOUNT_URL"
	EnvUser         = "DAGDEPLOY_USER"
	EnvPrivateKey   = "DAGDEPLOY_PRIVATE_KEY"
	EnvRole         = "DAGDEPLOY_ROLE"
	EnvWarehouse    = "DAGDEPLOY_WAREHOUSE"
	EnvDatabase     = "DAGDEPLOY_DATABASE"
	EnvSchema       = "DAGDEPLOY_SCHEMA"
	EnvTokenURL     = "DAGDEPLOY_TOKEN_URL"
	EnvClientID     = "DAGDEPLOY_CLIENT_ID"
	EnvClientSecret = "DAGDEPLOY_CLIENT_SECRET"
)

// AuthenticationError reports a missing or unusable connection context.
// It is fatal and surfaced before any graph work occurs; it is distinct
// from configuration errors.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Context is the explicit connection context threaded through the call
// chain into the deployer. Credential material is either a PEM private key
// (key-pair JWT auth) or an OAuth2 client-credentials triple.
type Context struct {
	Account    string
	AccountURL string
	User       string
	Role       string

	// Default compute pool and namespace, overridable per environment.
	Warehouse string
	Database  string
	Schema    string

	PrivateKeyPEM string

	TokenURL     string
	ClientID     string
	ClientSecret string
}

// FromEnv builds a Context from process environment variables. Absence of a
// required variable is an AuthenticationError, never a ConfigError.
func FromEnv() (*Context, error) {
	c := &Context{
		Account:       strings.TrimSpace(os.Getenv(EnvAccount)),
		AccountURL:    strings.TrimSpace(os.Getenv(EnvAccountURL)),
		User:          strings.TrimSpace(os.Getenv(EnvUser)),
		Role:          strings.TrimSpace(os.Getenv(EnvRole)),
		Warehouse:     strings.TrimSpace(os.Getenv(EnvWarehouse)),
		Database:      strings.TrimSpace(os.Getenv(EnvDatabase)),
		Schema:        strings.TrimSpace(os.Getenv(EnvSchema)),
		PrivateKeyPEM: os.Getenv(EnvPrivateKey),
		TokenURL:      strings.TrimSpace(os.Getenv(EnvTokenURL)),
		ClientID:      strings.TrimSpace(os.Getenv(EnvClientID)),
		ClientSecret:  os.Getenv(EnvClientSecret),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the context carries an account, a principal and one
// complete credential mechanism.
func (c *Context) Validate() error {
	var missing []string
	if c.Account == "" && c.AccountURL == "" {
		missing = append(missing, EnvAccount)
	}
	if c.User == "" {
		missing = append(missing, EnvUser)
	}
	if len(missing) > 0 {
		return &AuthenticationError{Reason: fmt.Sprintf("missing connection variables: %s", strings.Join(missing, ", "))}
	}

	hasKey := strings.TrimSpace(c.PrivateKeyPEM) != ""
	hasOAuth := c.TokenURL != "" || c.ClientID != "" || c.ClientSecret != ""
	if !hasKey && !hasOAuth {
		return &AuthenticationError{
			Reason: fmt.Sprintf("no credential material: set %s, or %s with %s and %s",
				EnvPrivateKey, EnvTokenURL, EnvClientID, EnvClientSecret),
		}
	}
	if !hasKey {
		if c.TokenURL == "" || c.ClientID == "" || c.ClientSecret == "" {
			return &AuthenticationError{
				Reason: fmt.Sprintf("incomplete oauth2 credentials: %s, %s and %s are all required",
					EnvTokenURL, EnvClientID, EnvClientSecret),
			}
		}
	}
	return nil
}

// BaseURL returns the endpoint of the backend's SQL API. An explicit
// account URL wins; otherwise it is derived from the account identifier.
func (c *Context) BaseURL() string {
	if c.AccountURL != "" {
		return strings.TrimRight(c.AccountURL, "/")
	}
	return fmt.Sprintf("https://%s.snowflakecomputing.com", strings.ToLower(c.Account))
}

// UsesKeyPair reports whether key-pair JWT auth is in effect; otherwise the
// OAuth2 client-credentials flow is used.
func (c *Context) UsesKeyPair() bool {
	return strings.TrimSpace(c.PrivateKeyPEM) != ""
}
