package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/phone-auth-api/shared/notify"
)

// InfobipSender delivers text messages through the Infobip SMS API.
type InfobipSender struct {
	config *infobipConfig
	client *http.Client
}

// infobipConfig holds the Infobip account settings.
type infobipConfig struct {
	Domain     string        `env:"SMS_DOMAIN"`
	APIKey     string        `env:"SMS_API_KEY"`
	SenderName string        `env:"SMS_SENDER_NAME" envDefault:"PhoneAuth"`
	Scheme     string        `env:"SMS_SCHEME"      envDefault:"https"`
	Timeout    time.Duration `env:"SMS_TIMEOUT"     envDefault:"10s"`
}

type infobipRequest struct {
	Messages []infobipMessage `json:"messages"`
}

type infobipMessage struct {
	From         string               `json:"from"`
	Destinations []infobipDestination `json:"destinations"`
	Text         string               `json:"text"`
}

type infobipDestination struct {
	To string `json:"to"`
}

type infobipResponse struct {
	Messages []struct {
		MessageID string `json:"messageId"`
		Status    struct {
			Name      string `json:"name"`
			GroupName string `json:"groupName"`
		} `json:"status"`
	} `json:"messages"`
}

type infobipErrorResponse struct {
	RequestError struct {
		ServiceException struct {
			MessageID string `json:"messageId"`
			Text      string `json:"text"`
		} `json:"serviceException"`
	} `json:"requestError"`
}

// NewInfobipSender creates an InfobipSender configured from environment variables.
func NewInfobipSender(logger *zerolog.Logger) *InfobipSender {
	cfg, err := env.ParseAs[infobipConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate Infobip configuration")
	}

	return newInfobipSender(&cfg, &http.Client{Timeout: cfg.Timeout})
}

func newInfobipSender(cfg *infobipConfig, client *http.Client) *InfobipSender {
	return &InfobipSender{config: cfg, client: client}
}

// Send posts a single text message to destination.
// A non-nil Result is returned whenever the API answered, including rejections.
func (s *InfobipSender) Send(ctx context.Context, destination, message string) (*notify.Result, error) {
	if destination == "" {
		return nil, errors.New("destination is required")
	}
	if message == "" {
		return nil, errors.New("message is required")
	}

	body, err := json.Marshal(infobipRequest{
		Messages: []infobipMessage{{
			From:         s.config.SenderName,
			Destinations: []infobipDestination{{To: destination}},
			Text:         message,
		}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s://%s/sms/2/text/advanced", s.config.Scheme, s.config.Domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "App "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Infobip: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read Infobip response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return parseFailedResponse(resp.StatusCode, raw)
	}

	return parseSuccessResponse(raw)
}

func parseSuccessResponse(raw []byte) (*notify.Result, error) {
	var body infobipResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode Infobip response: %w", err)
	}

	if len(body.Messages) == 0 {
		return nil, errors.New("infobip response contains no messages")
	}

	msg := body.Messages[0]

	return &notify.Result{
		Success:   true,
		MessageID: msg.MessageID,
		Status:    msg.Status.Name,
		Category:  msg.Status.GroupName,
	}, nil
}

func parseFailedResponse(statusCode int, raw []byte) (*notify.Result, error) {
	result := &notify.Result{Success: false, ErrorMessage: http.StatusText(statusCode)}

	var body infobipErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.RequestError.ServiceException.Text != "" {
		result.ErrorMessage = body.RequestError.ServiceException.Text
	}

	return result, fmt.Errorf("infobip rejected message with status %d: %s", statusCode, result.ErrorMessage)
}

// validate checks if the Infobip configuration is valid.
func (c *infobipConfig) validate() error {
	if c.Domain == "" {
		return fmt.Errorf("missing SMS_DOMAIN environment variable")
	}
	if c.APIKey == "" {
		return fmt.Errorf("missing SMS_API_KEY environment variable")
	}

	return nil
}
