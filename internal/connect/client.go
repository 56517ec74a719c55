package connect

import (
	"crypto/tls"

	"github.com/go-resty/resty/v2"
)

// ClientOptions control the HTTP client used against the SQL API.
type ClientOptions struct {
	Insecure  bool
	TLSConfig *tls.Config
}

// NewClient returns a resty.Client configured for the SQL API endpoint.
// Defaults: MinVersion TLS1.3 when no TLS config is supplied.
func (c *Context) NewClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	client.SetBaseURL(c.BaseURL())

	cfg := opts.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS13
	}
	if opts.Insecure {
		cfg.InsecureSkipVerify = true // #nosec G402 -- explicit opt-in for local stub schedulers
	}
	client.SetTLSClientConfig(cfg)
	return client
}
