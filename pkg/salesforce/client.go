// Package salesforce provides JWT-authenticated read access to Salesforce
// Account and Contact records, the structured company database consulted
// when profiling funded companies.
package salesforce

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Salesforce operations used by the profiler.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
}

// Creds are the JWT bearer credentials for an org.
type Creds struct {
	LoginURL  string
	Username  string
	ClientID  string
	RSAKeyPEM string
}

// ClientOption configures the client.
type ClientOption func(*sfClient)

// WithRateLimit caps API calls per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps go-salesforce. The library takes no context, so ctx only
// bounds the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// Connect authenticates with JWT bearer flow and returns a Client.
func Connect(creds Creds, opts ...ClientOption) (Client, error) {
	if creds.ClientID == "" || creds.Username == "" {
		return nil, eris.New("sf: client id and username are required")
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         creds.LoginURL,
		Username:       creds.Username,
		ConsumerKey:    creds.ClientID,
		ConsumerRSAPem: creds.RSAKeyPEM,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init")
	}
	return NewClient(sf, opts...), nil
}

// NewClient wraps an initialised go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "sf: rate limit")
	}
	if err := c.sf.Query(soql, out); err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}
