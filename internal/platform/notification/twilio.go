package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// TwilioConfig holds the credentials for the Twilio Messages API.
type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
}

// TwilioSender delivers SMS through the Twilio REST API.
type TwilioSender struct {
	httpClient *resty.Client
	cfg        TwilioConfig
	logger     zerolog.Logger
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewTwilioSender(cfg TwilioConfig, logger zerolog.Logger) *TwilioSender {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})

	return &TwilioSender{
		httpClient: client,
		cfg:        cfg,
		logger:     logger.With().Str("component", "twilio").Logger(),
	}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	var apiErr twilioError
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": s.cfg.From,
			"Body": body,
		}).
		SetError(&apiErr).
		Post(fmt.Sprintf("/Accounts/%s/Messages.json", s.cfg.AccountSID))
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	if resp.IsError() {
		s.logger.Warn().
			Int("status", resp.StatusCode()).
			Int("code", apiErr.Code).
			Str("to", to).
			Msg("sms delivery rejected")
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode(), apiErr.Message)
	}
	s.logger.Debug().Str("to", to).Msg("sms sent")
	return nil
}
