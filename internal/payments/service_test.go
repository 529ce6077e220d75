package payments_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"swipely/internal/notifications"
	"swipely/internal/payments"
	"swipely/internal/services"
	"swipely/internal/services/telegram"
	"swipely/internal/services/yookassa"
	"swipely/internal/store"
	"swipely/internal/testsupport"
)

type fakeProvider struct {
	status  string
	created []yookassa.CreateRequest
	fetched int
	paid    *yookassa.Amount
}

func (p *fakeProvider) CreatePayment(_ context.Context, req yookassa.CreateRequest) (*yookassa.Payment, string, error) {
	p.created = append(p.created, req)
	return &yookassa.Payment{
		ID:           "pay-1",
		Status:       yookassa.StatusPending,
		Amount:       req.Amount,
		Confirmation: &yookassa.Confirmation{Type: "redirect", ConfirmationURL: "https://pay.example/confirm"},
	}, "key-1", nil
}

func (p *fakeProvider) GetPayment(_ context.Context, id string) (*yookassa.Payment, error) {
	p.fetched++
	payment := &yookassa.Payment{ID: id, Status: p.status, Paid: p.status == yookassa.StatusSucceeded}
	switch {
	case p.paid != nil:
		payment.Amount = *p.paid
	case len(p.created) > 0:
		payment.Amount = p.created[len(p.created)-1].Amount
	}
	return payment, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, _ telegram.SendOptions) (*telegram.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return &telegram.Message{}, nil
}

type recordingNotifier struct {
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.events = append(n.events, event)
	return nil
}

func newService(t *testing.T, provider *fakeProvider) (*payments.Service, *store.Store, *fakeMessenger, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.YooKassa.ReturnURL = "https://t.me/swipely_bot"
	st := testsupport.MustOpenStore(t, cfg)
	messenger := &fakeMessenger{}
	notifier := &recordingNotifier{}
	svc := payments.NewService(cfg.YooKassa, provider, st,
		payments.WithMessenger(messenger),
		payments.WithNotifier(notifier),
	)
	return svc, st, messenger, notifier
}

const webhookBody = `{"type":"notification","event":"payment.succeeded","object":{"id":"pay-1","status":"succeeded"}}`

func TestCreateCheckoutRecordsPendingPayment(t *testing.T) {
	provider := &fakeProvider{}
	svc, st, _, _ := newService(t, provider)
	testsupport.NewUser(t, st, 42)

	checkout, err := svc.CreateCheckout(context.Background(), 42)
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if checkout.ConfirmationURL != "https://pay.example/confirm" || checkout.Amount != "299.00" || checkout.Days != 30 {
		t.Fatalf("unexpected checkout: %+v", checkout)
	}
	if len(provider.created) != 1 || provider.created[0].Metadata["telegram_id"] != "42" {
		t.Fatalf("unexpected provider request: %+v", provider.created)
	}
	payment, err := st.GetPayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.Status != store.PaymentPending || payment.IdempotenceKey != "key-1" {
		t.Fatalf("unexpected stored payment: %+v", payment)
	}
}

func TestCreateCheckoutUnknownUser(t *testing.T) {
	svc, _, _, _ := newService(t, &fakeProvider{})
	if _, err := svc.CreateCheckout(context.Background(), 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWebhookSettlesOnce(t *testing.T) {
	provider := &fakeProvider{status: yookassa.StatusSucceeded}
	svc, st, messenger, notifier := newService(t, provider)
	ctx := context.Background()
	testsupport.NewUser(t, st, 42)
	if _, err := svc.CreateCheckout(ctx, 42); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	outcome, err := svc.HandleWebhook(ctx, []byte(webhookBody))
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if !outcome.Applied || outcome.ProUntil == nil {
		t.Fatalf("expected payment applied, got %+v", outcome)
	}
	user, err := st.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Tier != store.TierPro {
		t.Fatalf("expected pro tier, got %s", user.Tier)
	}
	firstUntil := *user.ProUntil

	again, err := svc.HandleWebhook(ctx, []byte(webhookBody))
	if err != nil {
		t.Fatalf("repeat HandleWebhook: %v", err)
	}
	if again.Applied {
		t.Fatal("expected repeated webhook to be a no-op")
	}
	user, _ = st.GetUser(ctx, 42)
	if !user.ProUntil.Equal(firstUntil) {
		t.Fatalf("pro period extended twice: %v vs %v", user.ProUntil, firstUntil)
	}
	if len(messenger.sent) != 1 || messenger.sent[0].chatID != 42 || !strings.Contains(messenger.sent[0].text, "Pro") {
		t.Fatalf("unexpected messages: %+v", messenger.sent)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventPaymentReceived {
		t.Fatalf("unexpected notifications: %+v", notifier.events)
	}
	if provider.fetched != 2 {
		t.Fatalf("expected provider verification per webhook, got %d", provider.fetched)
	}
}

func TestWebhookTrustsProviderOverBody(t *testing.T) {
	provider := &fakeProvider{status: yookassa.StatusPending}
	svc, st, messenger, _ := newService(t, provider)
	ctx := context.Background()
	testsupport.NewUser(t, st, 42)
	if _, err := svc.CreateCheckout(ctx, 42); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	outcome, err := svc.HandleWebhook(ctx, []byte(webhookBody))
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if outcome.Applied || outcome.Status != store.PaymentPending {
		t.Fatalf("forged webhook must not settle: %+v", outcome)
	}
	user, _ := st.GetUser(ctx, 42)
	if user.Tier != store.TierFree || len(messenger.sent) != 0 {
		t.Fatalf("user upgraded by unverified webhook: %+v", user)
	}
}

func TestWebhookRejectsAmountMismatch(t *testing.T) {
	provider := &fakeProvider{status: yookassa.StatusSucceeded}
	svc, st, messenger, notifier := newService(t, provider)
	ctx := context.Background()
	testsupport.NewUser(t, st, 42)
	if _, err := svc.CreateCheckout(ctx, 42); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	for _, paid := range []yookassa.Amount{
		{Value: "1.00", Currency: "RUB"},
		{Value: "299.00", Currency: "USD"},
	} {
		provider.paid = &paid
		if _, err := svc.HandleWebhook(ctx, []byte(webhookBody)); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", paid, err)
		}
	}
	payment, _ := st.GetPayment(ctx, "pay-1")
	user, _ := st.GetUser(ctx, 42)
	if payment.Status != store.PaymentPending || user.Tier != store.TierFree {
		t.Fatalf("mismatched payment must not settle: payment=%s tier=%s", payment.Status, user.Tier)
	}
	if len(messenger.sent) != 0 || len(notifier.events) != 0 {
		t.Fatalf("unexpected side effects: %+v %+v", messenger.sent, notifier.events)
	}

	provider.paid = &yookassa.Amount{Value: "299", Currency: "rub"}
	outcome, err := svc.HandleWebhook(ctx, []byte(webhookBody))
	if err != nil || !outcome.Applied {
		t.Fatalf("equivalent amount should settle: %+v %v", outcome, err)
	}
}

func TestWebhookCancelAndUnknown(t *testing.T) {
	provider := &fakeProvider{status: yookassa.StatusCanceled}
	svc, st, _, _ := newService(t, provider)
	ctx := context.Background()
	testsupport.NewUser(t, st, 42)
	if _, err := svc.CreateCheckout(ctx, 42); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	outcome, err := svc.HandleWebhook(ctx, []byte(`{"event":"payment.canceled","object":{"id":"pay-1"}}`))
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if outcome.Status != store.PaymentCanceled {
		t.Fatalf("expected canceled, got %+v", outcome)
	}
	payment, _ := st.GetPayment(ctx, "pay-1")
	if payment.Status != store.PaymentCanceled {
		t.Fatalf("expected stored cancel, got %s", payment.Status)
	}

	if _, err := svc.HandleWebhook(ctx, []byte(`{"event":"payment.succeeded","object":{"id":"pay-404"}}`)); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown payment, got %v", err)
	}
	if _, err := svc.HandleWebhook(ctx, []byte(`not json`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
