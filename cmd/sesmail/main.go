package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostedid/sesmail/internal/config"
	"github.com/hostedid/sesmail/internal/email"
	"github.com/hostedid/sesmail/internal/email/gmail"
	"github.com/hostedid/sesmail/internal/email/ses"
	"github.com/hostedid/sesmail/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type sendFlags struct {
	to      string
	subject string
	text    string
	html    string
	test    bool
	dryRun  bool
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sesmail",
		Short:         "Send platform email through AWS SES",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: search sesmail.yaml)")

	var flags sendFlags
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send one email with the configured sender identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, configPath, flags)
		},
	}
	sendCmd.Flags().StringVar(&flags.to, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&flags.subject, "subject", "", "subject line")
	sendCmd.Flags().StringVar(&flags.text, "text", "", "plain-text body")
	sendCmd.Flags().StringVar(&flags.html, "html", "", "HTML body")
	sendCmd.Flags().BoolVar(&flags.test, "test", false, "send the built-in test message")
	sendCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the provider request instead of sending")
	_ = sendCmd.MarkFlagRequired("to")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configured sender address without sending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, configPath)
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show the provider and its operational info",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, configPath)
		},
	}

	rootCmd.AddCommand(sendCmd, validateCmd, infoCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command, configPath string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return cfg, log, nil
}

// newFactory builds the configured provider's factory.
func newFactory(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (email.SenderFactory, error) {
	switch cfg.Provider {
	case ses.ProviderID, "":
		return ses.NewFactory(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			SessionToken:    cfg.SES.SessionToken,
			Endpoint:        cfg.SES.Endpoint,
		}, ses.WithLogger(log))
	case gmail.ProviderID:
		return gmail.NewFactory(ctx, gmail.Config{
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			ClientID:        cfg.Gmail.ClientID,
			ClientSecret:    cfg.Gmail.ClientSecret,
			RefreshToken:    cfg.Gmail.RefreshToken,
			Mailbox:         cfg.Gmail.Mailbox,
		}, gmail.WithLogger(log))
	default:
		return nil, fmt.Errorf("%w: unknown email provider %q", email.ErrInvalidConfig, cfg.Provider)
	}
}

func runSend(cmd *cobra.Command, configPath string, flags sendFlags) error {
	cfg, log, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	msg := email.Message{
		To:       flags.to,
		Subject:  flags.subject,
		TextBody: flags.text,
		HTMLBody: flags.html,
	}
	if flags.test {
		msg = email.TestMessage(flags.to, cfg.Email.AppName)
	} else if msg.Subject == "" {
		return errors.New("--subject is required unless --test is set")
	}

	sendCfg := cfg.Email.Send.SendConfig()

	if flags.dryRun {
		return printRequest(cmd, cfg.Email.Provider, sendCfg, msg)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Email.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Email.Timeout)
		defer cancel()
	}

	factory, err := newFactory(ctx, cfg.Email, log)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()

	// Already logged by the sender
	if err := factory.Create().Send(ctx, sendCfg, msg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent to %s via %s\n", msg.To, factory.ID())
	return nil
}

func printRequest(cmd *cobra.Command, provider string, sendCfg email.SendConfig, msg email.Message) error {
	if provider == gmail.ProviderID {
		raw, err := gmail.BuildMIME(sendCfg, msg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
		return err
	}

	input, err := ses.BuildRequest(sendCfg, msg)
	if err != nil {
		return err
	}
	return writeJSON(cmd, input)
}

func runValidate(cmd *cobra.Command, configPath string) error {
	cfg, log, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	factory, err := newFactory(context.Background(), cfg.Email, log)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()

	if err := factory.Create().Validate(cfg.Email.Send.SendConfig()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sender %s is valid\n", cfg.Email.Send.From)
	return nil
}

func runInfo(cmd *cobra.Command, configPath string) error {
	cfg, log, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	factory, err := newFactory(context.Background(), cfg.Email, log)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()

	return writeJSON(cmd, map[string]any{
		"provider": factory.ID(),
		"info":     factory.OperationalInfo(),
	})
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
