package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"swipely/internal/config"
	"swipely/internal/i18n"
	"swipely/internal/logging"
	"swipely/internal/notifications"
	"swipely/internal/services"
	"swipely/internal/services/telegram"
	"swipely/internal/services/yookassa"
	"swipely/internal/store"
)

// Provider is the payment gateway.
type Provider interface {
	CreatePayment(ctx context.Context, req yookassa.CreateRequest) (*yookassa.Payment, string, error)
	GetPayment(ctx context.Context, id string) (*yookassa.Payment, error)
}

// Store persists payments and users.
type Store interface {
	GetUser(ctx context.Context, telegramID int64) (*store.User, error)
	CreatePayment(ctx context.Context, payment store.Payment) (*store.Payment, error)
	GetPayment(ctx context.Context, id string) (*store.Payment, error)
	MarkPaymentSucceeded(ctx context.Context, id string) (*store.Payment, bool, error)
	MarkPaymentCanceled(ctx context.Context, id string) error
}

// Messenger sends the payment confirmation to the buyer's private chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
}

// Checkout is a payment waiting for the user to confirm it.
type Checkout struct {
	PaymentID       string `json:"payment_id"`
	ConfirmationURL string `json:"confirmation_url"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Days            int    `json:"days"`
}

// Outcome describes what a webhook changed.
type Outcome struct {
	PaymentID string
	Status    store.PaymentStatus
	Applied   bool
	ProUntil  *time.Time
}

// Service coordinates checkout and webhook settlement.
type Service struct {
	cfg       config.YooKassa
	provider  Provider
	store     Store
	notifier  notifications.Service
	messenger Messenger
	logger    *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier publishes payment events to ntfy.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMessenger enables the Telegram confirmation message.
func WithMessenger(m Messenger) Option {
	return func(s *Service) { s.messenger = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds the payments service.
func NewService(cfg config.YooKassa, provider Provider, st Store, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		provider: provider,
		store:    st,
		notifier: notifications.NewService(nil),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.String(logging.FieldComponent, "payments"))
	return s
}

// CreateCheckout opens a Pro payment for the user.
func (s *Service) CreateCheckout(ctx context.Context, telegramID int64) (*Checkout, error) {
	if s.provider == nil {
		return nil, services.Wrap(services.ErrConfiguration, "payments", "checkout", "Payments are not configured", nil)
	}
	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, services.Wrap(services.ErrNotFound, "payments", "checkout", "Unknown user", err)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	amount := yookassa.Amount{Value: strings.TrimSpace(s.cfg.ProPrice), Currency: strings.TrimSpace(s.cfg.Currency)}
	description := fmt.Sprintf("Swipely Pro, %d days", s.cfg.ProDays)
	if user.Username != "" {
		description += " (@" + user.Username + ")"
	}

	payment, key, err := s.provider.CreatePayment(ctx, yookassa.CreateRequest{
		Amount:      amount,
		Description: description,
		ReturnURL:   s.cfg.ReturnURL,
		Metadata: map[string]string{
			"telegram_id": strconv.FormatInt(telegramID, 10),
			"days":        strconv.Itoa(s.cfg.ProDays),
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "payments", "create payment", "Payment provider rejected the checkout", err)
	}
	confirmation := ""
	if payment.Confirmation != nil {
		confirmation = payment.Confirmation.ConfirmationURL
	}
	if confirmation == "" {
		return nil, services.Wrap(services.ErrExternalTool, "payments", "create payment", "Payment provider returned no confirmation URL", nil)
	}

	record, err := s.store.CreatePayment(ctx, store.Payment{
		ID:              payment.ID,
		TelegramID:      telegramID,
		Amount:          amount.Value,
		Currency:        amount.Currency,
		Days:            s.cfg.ProDays,
		ConfirmationURL: confirmation,
		IdempotenceKey:  key,
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	s.logger.Info("checkout created",
		logging.String("payment_id", record.ID),
		logging.Int64(logging.FieldUserID, telegramID),
		logging.String("amount", record.Amount),
		logging.String("currency", record.Currency),
	)
	return &Checkout{
		PaymentID:       record.ID,
		ConfirmationURL: confirmation,
		Amount:          record.Amount,
		Currency:        record.Currency,
		Days:            record.Days,
	}, nil
}

// HandleWebhook processes a YooKassa notification body. Unknown payments are
// reported as not found; repeated notifications are acknowledged without
// extending Pro again.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) (*Outcome, error) {
	notification, err := yookassa.ParseNotification(body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "payments", "parse webhook", "Malformed payment notification", err)
	}
	paymentID := notification.Object.ID
	logger := s.logger.With(logging.String("payment_id", paymentID), logging.String("event", notification.Event))

	local, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("webhook for unknown payment",
				logging.String(logging.FieldEventType, "payment_unknown"),
				logging.String(logging.FieldErrorHint, "check that the webhook URL belongs to this shop"),
			)
			return nil, services.Wrap(services.ErrNotFound, "payments", "webhook", "Unknown payment", err)
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if s.provider == nil {
		return nil, services.Wrap(services.ErrConfiguration, "payments", "webhook", "Payments are not configured", nil)
	}

	remote, err := s.provider.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "payments", "verify payment", "Could not verify payment with provider", err)
	}

	switch remote.Status {
	case yookassa.StatusSucceeded:
		if !matchesCheckout(local, remote.Amount) {
			logger.Error("paid amount does not match checkout",
				logging.String(logging.FieldEventType, "payment_amount_mismatch"),
				logging.String("expected", local.Amount+" "+local.Currency),
				logging.String("paid", remote.Amount.Value+" "+remote.Amount.Currency),
				logging.String(logging.FieldErrorHint, "review the payment in the YooKassa dashboard"),
			)
			return nil, services.Wrap(services.ErrValidation, "payments", "verify payment", "Paid amount does not match checkout", nil)
		}
		return s.settle(ctx, logger, paymentID)
	case yookassa.StatusCanceled:
		if err := s.store.MarkPaymentCanceled(ctx, paymentID); err != nil {
			return nil, err
		}
		logger.Info("payment canceled")
		return &Outcome{PaymentID: paymentID, Status: store.PaymentCanceled}, nil
	default:
		logger.Debug("payment not final", logging.String("status", remote.Status))
		return &Outcome{PaymentID: paymentID, Status: store.PaymentPending}, nil
	}
}

// matchesCheckout compares the provider amount with the recorded checkout to the kopeck.
func matchesCheckout(local *store.Payment, paid yookassa.Amount) bool {
	if !strings.EqualFold(strings.TrimSpace(local.Currency), strings.TrimSpace(paid.Currency)) {
		return false
	}
	want, err := strconv.ParseFloat(strings.TrimSpace(local.Amount), 64)
	if err != nil {
		return false
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(paid.Value), 64)
	if err != nil {
		return false
	}
	return math.Round(want*100) == math.Round(got*100)
}

func (s *Service) settle(ctx context.Context, logger *slog.Logger, paymentID string) (*Outcome, error) {
	payment, applied, err := s.store.MarkPaymentSucceeded(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("settle payment: %w", err)
	}
	outcome := &Outcome{PaymentID: paymentID, Status: payment.Status, Applied: applied}
	if !applied {
		logger.Info("payment already settled")
		return outcome, nil
	}

	user, err := s.store.GetUser(ctx, payment.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("load payer: %w", err)
	}
	outcome.ProUntil = user.ProUntil
	until := ""
	if user.ProUntil != nil {
		until = user.ProUntil.Format("2006-01-02")
	}
	logger.Info("payment settled",
		logging.Int64(logging.FieldUserID, payment.TelegramID),
		logging.String("amount", payment.Amount),
		logging.String("pro_until", until),
	)

	if err := s.notifier.Publish(ctx, notifications.EventPaymentReceived, notifications.Payload{
		"amount":      payment.Amount,
		"currency":    payment.Currency,
		"telegram_id": payment.TelegramID,
		"pro_until":   until,
	}); err != nil {
		logging.WarnWithContext(logger, "payment notification failed", "payment_notify_failed", logging.Error(err))
	}
	if s.messenger != nil {
		text := i18n.T(user.Language, i18n.KeyPaymentDone, until)
		if _, err := s.messenger.SendMessage(ctx, payment.TelegramID, text, telegram.SendOptions{}); err != nil {
			logging.WarnWithContext(logger, "payment confirmation not delivered", "payment_message_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "user was upgraded but not told"),
			)
		}
	}
	return outcome, nil
}
