// Package gmail sends platform email through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/hostedid/sesmail/internal/email"
	"github.com/hostedid/sesmail/internal/logger"
)

// ProviderID identifies this provider in configuration.
const ProviderID = "gmail"

const mimeBoundary = "boundary_sesmail_email"

var (
	_ email.SenderFactory = (*Factory)(nil)
	_ email.Sender        = (*Sender)(nil)
)

// Config holds the configuration for the Gmail provider.
// Either CredentialsJSON (service account with domain-wide delegation) or
// the ClientID/ClientSecret/RefreshToken triple must be set.
type Config struct {
	// CredentialsJSON is the service account credentials JSON content.
	CredentialsJSON string
	// OAuth2 token-based auth (alternative to service account)
	ClientID     string
	ClientSecret string
	RefreshToken string
	// Mailbox is the account emails are sent as; the service account
	// impersonates it.
	Mailbox string
}

// Option configures a Factory.
type Option func(*factoryOptions)

type factoryOptions struct {
	httpClient *http.Client
	endpoint   string
	log        *logger.Logger
}

// WithHTTPClient sets an already authorized HTTP client, skipping
// credential handling.
func WithHTTPClient(client *http.Client) Option {
	return func(o *factoryOptions) {
		o.httpClient = client
	}
}

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *factoryOptions) {
		o.endpoint = endpoint
	}
}

// WithLogger sets the logger used for send failures.
func WithLogger(log *logger.Logger) Option {
	return func(o *factoryOptions) {
		o.log = log
	}
}

// Factory owns the Gmail service handle and creates Senders that share it.
type Factory struct {
	service *gmail.Service
	info    map[string]string
	log     *logger.Logger
}

// NewFactory creates the Gmail service once for the process.
func NewFactory(ctx context.Context, cfg Config, opts ...Option) (*Factory, error) {
	options := &factoryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	log := options.log
	if log == nil {
		log = logger.Nop()
	}

	client := options.httpClient
	if client == nil {
		var err error
		client, err = authorizedClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	clientOptions := []option.ClientOption{option.WithHTTPClient(client)}
	if options.endpoint != "" {
		clientOptions = append(clientOptions, option.WithEndpoint(options.endpoint))
	}

	svc, err := gmail.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: gmail: failed to create service: %w", email.ErrInvalidConfig, err)
	}

	info := make(map[string]string)
	if cfg.Mailbox != "" {
		info["mailbox"] = cfg.Mailbox
	}

	return &Factory{
		service: svc,
		info:    info,
		log:     log.WithComponent("email").WithProvider(ProviderID),
	}, nil
}

// authorizedClient prefers service account credentials and falls back to
// an OAuth2 refresh token.
func authorizedClient(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.CredentialsJSON != "" {
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("%w: gmail: failed to parse credentials: %w", email.ErrInvalidConfig, err)
		}
		// Domain-wide delegation: act as the sending mailbox
		jwtConfig.Subject = cfg.Mailbox
		return jwtConfig.Client(ctx), nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: gmail: credentials JSON or client ID, client secret and refresh token are required", email.ErrInvalidConfig)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	return oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}), nil
}

// ID returns "gmail".
func (f *Factory) ID() string {
	return ProviderID
}

// Create returns a Sender sharing the factory's service handle.
func (f *Factory) Create() email.Sender {
	return &Sender{service: f.service, log: f.log}
}

// OperationalInfo returns a copy of the configured mailbox, if any.
func (f *Factory) OperationalInfo() map[string]string {
	return maps.Clone(f.info)
}

// Close is a no-op.
func (f *Factory) Close() error {
	return nil
}

// Sender sends one email per Send call via the Gmail API.
type Sender struct {
	service *gmail.Service
	log     *logger.Logger
}

// Send builds a MIME message and submits it as the authenticated mailbox.
// Failures are logged once here and returned joined with email.ErrSendFailed.
func (s *Sender) Send(ctx context.Context, cfg email.SendConfig, msg email.Message) error {
	sendID := uuid.NewString()
	fields := map[string]string{"send_id": sendID, "to": msg.To}

	raw, err := BuildMIME(cfg, msg)
	if err != nil {
		err = errors.Join(email.ErrSendFailed, err)
		s.log.FailedToSendEmail(err, fields)
		return err
	}

	sent, err := s.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		err = errors.Join(email.ErrSendFailed, fmt.Errorf("gmail: failed to send email: %w", err))
		s.log.FailedToSendEmail(err, fields)
		return err
	}

	s.log.Debug().Str("send_id", sendID).Str("message_id", sent.Id).Msg("email sent")
	return nil
}

// Validate checks the sender address without contacting Gmail.
func (s *Sender) Validate(cfg email.SendConfig) error {
	return email.ValidateSendConfig(cfg)
}

// BuildMIME renders msg as a multipart/alternative message with the same
// sender and reply-to rules as the other providers.
func BuildMIME(cfg email.SendConfig, msg email.Message) ([]byte, error) {
	from := cfg.From()
	if from == "" {
		return nil, email.ErrMissingFrom
	}

	source, err := email.ResolveAddress(from, cfg.FromDisplayName())
	if err != nil {
		return nil, err
	}

	to, err := email.ResolveAddress(msg.To, "")
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	headers := []string{
		"From: " + source,
		"To: " + to,
	}

	if replyTo := cfg.ReplyTo(); replyTo != "" {
		address, err := email.ResolveAddress(replyTo, cfg.ReplyToDisplayName())
		if err != nil {
			return nil, err
		}
		headers = append(headers, "Reply-To: "+address)
	}

	headers = append(headers,
		"Subject: "+mime.QEncoding.Encode("utf-8", msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary="+mimeBoundary,
	)

	parts := []string{
		"",
		"--" + mimeBoundary,
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		msg.TextBody,
		"",
		"--" + mimeBoundary,
		"Content-Type: text/html; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		msg.HTMLBody,
		"",
		"--" + mimeBoundary + "--",
	}

	return []byte(strings.Join(append(headers, parts...), "\r\n")), nil
}
