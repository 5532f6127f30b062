package ses

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/hostedid/sesmail/internal/logger"
)

// Config holds the SES factory configuration.
// Region is optional; when empty the AWS default resolution chain
// (environment, shared config, instance metadata) decides.
type Config struct {
	Region string
	// Static credentials, used only when both are set.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the SES endpoint, e.g. for LocalStack.
	Endpoint string
}

// Client is the subset of *sesv2.Client used by Sender.
type Client interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Option configures a Factory.
type Option func(*factoryOptions)

type factoryOptions struct {
	client        Client
	log           *logger.Logger
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*sesv2.Options)
}

// WithClient sets a pre-built client handle instead of building one from
// the AWS configuration. Mostly useful for tests.
func WithClient(client Client) Option {
	return func(o *factoryOptions) {
		o.client = client
	}
}

// WithLogger sets the logger used for send failures.
func WithLogger(log *logger.Logger) Option {
	return func(o *factoryOptions) {
		o.log = log
	}
}

// WithHTTPClient sets the HTTP client the SES client uses.
// Timeouts for send calls belong here. AWS_CA_BUNDLE and ca_bundle only
// apply to the SDK's default client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *factoryOptions) {
		o.httpClient = client
	}
}

// WithConfigOption adds a custom AWS config load option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *factoryOptions) {
		o.configOptions = append(o.configOptions, option)
	}
}

// WithClientOption adds a custom SES client option.
func WithClientOption(option func(*sesv2.Options)) Option {
	return func(o *factoryOptions) {
		o.clientOptions = append(o.clientOptions, option)
	}
}
