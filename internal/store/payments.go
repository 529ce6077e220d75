package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const paymentColumns = "id, telegram_id, amount, currency, days, status, confirmation_url, idempotence_key, created_at, updated_at"

// CreatePayment records a pending payment created at the provider.
func (s *Store) CreatePayment(ctx context.Context, payment Payment) (*Payment, error) {
	if strings.TrimSpace(payment.ID) == "" {
		return nil, errors.New("payment id is required")
	}
	now := s.clock()
	payment.Status = PaymentPending
	payment.CreatedAt = now
	payment.UpdatedAt = now
	_, err := s.execWithRetry(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.TelegramID, payment.Amount, payment.Currency, payment.Days, payment.Status,
		nullableString(payment.ConfirmationURL), payment.IdempotenceKey, formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: payment %s", ErrConflict, payment.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &payment, nil
}

// GetPayment loads a payment by provider id.
func (s *Store) GetPayment(ctx context.Context, id string) (*Payment, error) {
	payment, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

// MarkPaymentSucceeded settles a pending payment and extends the payer's pro
// subscription by the payment's days. It reports false when the payment was
// already settled, so repeated webhooks change nothing.
func (s *Store) MarkPaymentSucceeded(ctx context.Context, id string) (*Payment, bool, error) {
	var applied bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		payment, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}
		if payment.Status != PaymentPending {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			PaymentSucceeded, formatTime(s.clock()), id, PaymentPending,
		); err != nil {
			return fmt.Errorf("settle payment: %w", err)
		}
		if err := s.setTierTx(ctx, tx, payment.TelegramID, TierPro, payment.Days); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return payment, applied, nil
}

// MarkPaymentCanceled cancels a pending payment.
func (s *Store) MarkPaymentCanceled(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		PaymentCanceled, formatTime(s.clock()), id, PaymentPending,
	); err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}
	return nil
}

// Revenue sums succeeded payments per currency.
func (s *Store) Revenue(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT currency, amount FROM payments WHERE status = ?`, PaymentSucceeded)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	defer rows.Close()
	totals := map[string]*big.Rat{}
	for rows.Next() {
		var currency, amount string
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, err
		}
		value, ok := new(big.Rat).SetString(amount)
		if !ok {
			continue
		}
		if totals[currency] == nil {
			totals[currency] = new(big.Rat)
		}
		totals[currency].Add(totals[currency], value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(totals))
	for currency, total := range totals {
		out[currency] = total.FloatString(2)
	}
	return out, nil
}

func scanPayment(scanner rowScanner) (*Payment, error) {
	var (
		payment    Payment
		status     string
		confirm    sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&payment.ID, &payment.TelegramID, &payment.Amount, &payment.Currency, &payment.Days,
		&status, &confirm, &payment.IdempotenceKey, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	payment.Status = PaymentStatus(status)
	payment.ConfirmationURL = confirm.String
	payment.CreatedAt, _ = parseTimeString(createdRaw)
	payment.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &payment, nil
}
