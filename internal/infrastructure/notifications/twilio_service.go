package notifications

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// messageSender is the part of the Twilio REST API used for SMS
type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioServiceImpl implements domain.NotificationService
type TwilioServiceImpl struct {
	api        messageSender
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioService creates a new Twilio notification service. Without a sender
// number messages are only logged.
func NewTwilioService(accountSID, authToken, fromNumber string, logger *zap.Logger) domain.NotificationService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioServiceImpl{
		api:        client.Api,
		fromNumber: fromNumber,
		logger:     logger.With(zap.String("component", "notifications")),
	}
}

// SendSMS implements domain.NotificationService
func (t *TwilioServiceImpl) SendSMS(to, message string) error {
	if to == "" {
		return fmt.Errorf("sms recipient is empty")
	}
	if t.fromNumber == "" {
		t.logger.Info("sms delivery not configured, message dropped",
			zap.String("to", maskPhone(to)),
			zap.Int("length", len(message)))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	t.logger.Debug("sms sent", zap.String("to", maskPhone(to)))
	return nil
}

// SendEmail implements domain.NotificationService. Mail goes through the CRM's
// outbound mailer; this service only records the hand-off.
func (t *TwilioServiceImpl) SendEmail(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email recipient is empty")
	}
	t.logger.Info("email queued",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("length", len(body)))
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
