package ses

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/hostedid/sesmail/internal/email"
	"github.com/hostedid/sesmail/internal/logger"
)

const charsetUTF8 = "UTF-8"

// Compile-time check that Sender implements email.Sender
var _ email.Sender = (*Sender)(nil)

// Sender sends one email per Send call through the shared SES client.
type Sender struct {
	client Client
	log    *logger.Logger
}

// Send validates the sender identity in cfg, builds the SES request and
// sends it. Every failure is logged once here and returned joined with
// email.ErrSendFailed; callers should not log it again.
func (s *Sender) Send(ctx context.Context, cfg email.SendConfig, msg email.Message) error {
	sendID := uuid.NewString()

	input, err := BuildRequest(cfg, msg)
	if err != nil {
		err = errors.Join(email.ErrSendFailed, err)
		s.log.FailedToSendEmail(err, map[string]string{
			"send_id": sendID,
			"to":      msg.To,
		})
		return err
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		fields := map[string]string{
			"send_id": sendID,
			"to":      msg.To,
		}
		if code := errorCode(err); code != "" {
			fields["aws_error_code"] = code
		}

		err = errors.Join(email.ErrSendFailed, classifyError(err))
		s.log.FailedToSendEmail(err, fields)
		return err
	}

	event := s.log.Debug().Str("send_id", sendID).Str("to", msg.To)
	if out != nil {
		event = event.Str("message_id", aws.ToString(out.MessageId))
	}
	event.Msg("email sent")

	return nil
}

// Validate checks the sender address without contacting SES.
func (s *Sender) Validate(cfg email.SendConfig) error {
	return email.ValidateSendConfig(cfg)
}

// BuildRequest assembles the SES request for msg. Subject and both bodies
// are passed through verbatim and declared as UTF-8.
func BuildRequest(cfg email.SendConfig, msg email.Message) (*sesv2.SendEmailInput, error) {
	from := cfg.From()
	if from == "" {
		return nil, email.ErrMissingFrom
	}

	source, err := email.ResolveAddress(from, cfg.FromDisplayName())
	if err != nil {
		return nil, err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body: &types.Body{
					Html: utf8Content(msg.HTMLBody),
					Text: utf8Content(msg.TextBody),
				},
			},
		},
	}

	if replyTo := cfg.ReplyTo(); replyTo != "" {
		address, err := email.ResolveAddress(replyTo, cfg.ReplyToDisplayName())
		if err != nil {
			return nil, err
		}
		input.ReplyToAddresses = []string{address}
	}

	return input, nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{
		Charset: aws.String(charsetUTF8),
		Data:    aws.String(data),
	}
}
