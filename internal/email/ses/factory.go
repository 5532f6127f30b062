// Package ses sends platform email through the AWS SES v2 API.
package ses

import (
	"context"
	"fmt"
	"maps"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/hostedid/sesmail/internal/email"
	"github.com/hostedid/sesmail/internal/logger"
)

// ProviderID identifies this provider in configuration.
const ProviderID = "aws-ses"

// Compile-time check that Factory implements email.SenderFactory
var _ email.SenderFactory = (*Factory)(nil)

// regions are lowercase host labels such as "eu-west-1" or "us-gov-west-1"
var regionRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Factory owns the SES client handle and creates Senders that share it.
// It is immutable after NewFactory returns.
type Factory struct {
	client Client
	info   map[string]string
	log    *logger.Logger
}

// NewFactory builds the SES client handle once for the process.
// A malformed region or an unloadable AWS configuration is reported as
// email.ErrInvalidConfig.
func NewFactory(ctx context.Context, cfg Config, opts ...Option) (*Factory, error) {
	if cfg.Region != "" && !regionRegex.MatchString(cfg.Region) {
		return nil, fmt.Errorf("%w: malformed region %q", email.ErrInvalidConfig, cfg.Region)
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, fmt.Errorf("%w: access key ID and secret access key must be set together", email.ErrInvalidConfig)
	}

	options := &factoryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	log := options.log
	if log == nil {
		log = logger.Nop()
	}

	info := make(map[string]string)
	if cfg.Region != "" {
		info["region"] = cfg.Region
	}

	client := options.client
	if client == nil {
		var awsOptions []func(*config.LoadOptions) error

		if cfg.Region != "" {
			awsOptions = append(awsOptions, config.WithRegion(cfg.Region))
		}

		// Static credentials if provided, the default chain otherwise
		if cfg.AccessKeyID != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretAccessKey,
					cfg.SessionToken,
				)),
			)
		}

		awsOptions = append(awsOptions, options.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load AWS config: %w", email.ErrInvalidConfig, err)
		}

		client = sesv2.NewFromConfig(awsConfig, func(o *sesv2.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			// Set on the client, not the config, so a CA bundle from the
			// environment does not reject it
			if options.httpClient != nil {
				o.HTTPClient = options.httpClient
			}

			for _, opt := range options.clientOptions {
				opt(o)
			}
		})

		log.Debug().
			Str("region", awsConfig.Region).
			Bool("region_configured", cfg.Region != "").
			Msg("SES client initialized")
	}

	return &Factory{
		client: client,
		info:   info,
		log:    log.WithComponent("email").WithProvider(ProviderID),
	}, nil
}

// ID returns "aws-ses".
func (f *Factory) ID() string {
	return ProviderID
}

// Create returns a Sender sharing the factory's client handle.
func (f *Factory) Create() email.Sender {
	return &Sender{client: f.client, log: f.log}
}

// OperationalInfo returns a copy of the configured region, if any.
func (f *Factory) OperationalInfo() map[string]string {
	return maps.Clone(f.info)
}

// Close is a no-op; the SDK client holds nothing that needs releasing.
func (f *Factory) Close() error {
	return nil
}
