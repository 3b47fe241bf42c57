package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/vasapolrittideah/phone-auth-api/shared/notify"
)

// Mailer delivers text messages to phones through a carrier e-mail-to-SMS gateway.
type Mailer struct {
	config *mailerConfig
	dialer *gomail.Dialer
}

// NewMailer creates a new Mailer instance configured from environment variables.
func NewMailer(logger *zerolog.Logger) *Mailer {
	cfg := newMailerConfig(logger)

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate Mailer configuration")
	}

	return newMailer(cfg)
}

func newMailer(cfg *mailerConfig) *Mailer {
	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &Mailer{
		config: cfg,
		dialer: dialer,
	}
}

// Send delivers message to the phone number in destination via the configured gateway domain.
// gomail has no context support: when ctx is done first, Send returns at once and the SMTP
// exchange keeps running in the background until it completes or fails on its own.
func (m *Mailer) Send(ctx context.Context, destination, message string) (*notify.Result, error) {
	address, err := m.gatewayAddress(destination)
	if err != nil {
		return nil, err
	}

	msg := m.newMessage(address, message)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to send email: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return &notify.Result{Success: false, ErrorMessage: err.Error()}, fmt.Errorf("failed to send email: %w", err)
		}
	}

	return &notify.Result{Success: true, Status: "SENT", Category: "SMTP"}, nil
}

// gatewayAddress turns a phone number into <digits>@<gateway domain>.
func (m *Mailer) gatewayAddress(phoneNumber string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phoneNumber)

	if digits == "" {
		return "", errors.New("destination contains no digits")
	}

	return digits + "@" + m.config.GatewayDomain, nil
}

func (m *Mailer) newMessage(to, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)

	if m.config.Subject != "" {
		msg.SetHeader("Subject", m.config.Subject)
	}

	msg.SetBody("text/plain", body)

	return msg
}

// mailerConfig holds SMTP configuration for sending emails.
type mailerConfig struct {
	Host          string `env:"SMTP_HOST"`
	Port          int    `env:"SMTP_PORT"`
	Username      string `env:"SMTP_USERNAME"`
	Password      string `env:"SMTP_PASSWORD"`
	From          string `env:"SMTP_FROM"`
	GatewayDomain string `env:"SMS_GATEWAY_DOMAIN"`
	Subject       string `env:"SMS_GATEWAY_SUBJECT"`
}

// newMailerConfig creates a MailerConfig instance from environment variables.
func newMailerConfig(logger *zerolog.Logger) *mailerConfig {
	cfg, err := env.ParseAs[mailerConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	return &cfg
}

// validate checks if the Mailer configuration is valid.
func (c *mailerConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USERNAME environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASSWORD environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	if c.GatewayDomain == "" {
		return fmt.Errorf("missing SMS_GATEWAY_DOMAIN environment variable")
	}

	return nil
}
