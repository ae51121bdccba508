package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/digimart/depositengine/internal/domain"
)

// ConfigLoader supplies the current webhook destination. Reloaded per event
// so admin edits take effect without a restart.
type ConfigLoader interface {
	LoadWebhookConfig(ctx context.Context) (domain.WebhookConfig, error)
}

// CreditEvent is the payload POSTed to the admin-configured webhook after a
// successful credit.
type CreditEvent struct {
	Event                 string    `json:"event"`
	BankName              string    `json:"bank_name"`
	BankConfigID          string    `json:"bank_config_id"`
	TransactionID         string    `json:"transaction_id"`
	UserID                string    `json:"user_id"`
	CreditedAmountVnd     int64     `json:"credited_amount_vnd"`
	BonusAmountVnd        int64     `json:"bonus_amount_vnd"`
	ReferralCommissionVnd int64     `json:"referral_commission_vnd"`
	ProcessedAt           time.Time `json:"processed_at"`
}

// Dispatcher sends best-effort credit notifications. Delivery failures are
// logged and dropped; they never reach the credit pipeline and never cause a
// transaction to be reprocessed.
type Dispatcher struct {
	loader     ConfigLoader
	httpClient *http.Client
	timeout    time.Duration
}

func NewDispatcher(loader ConfigLoader) *Dispatcher {
	return &Dispatcher{
		loader:     loader,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		timeout:    20 * time.Second,
	}
}

// NotifyCredited fires the webhook asynchronously and returns immediately.
func (d *Dispatcher) NotifyCredited(pt domain.ProcessedTransaction, bankName string) {
	event := CreditEvent{
		Event:                 "deposit.credited",
		BankName:              bankName,
		BankConfigID:          pt.BankConfigID,
		TransactionID:         pt.TransactionID,
		UserID:                pt.MatchedUserID,
		CreditedAmountVnd:     pt.CreditedAmountVnd,
		BonusAmountVnd:        pt.BonusAmountVnd,
		ReferralCommissionVnd: pt.ReferralCommissionVnd,
		ProcessedAt:           pt.ProcessedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.send(ctx, event); err != nil {
			log.Printf("[notify] WARNING: webhook delivery failed for %s/%s: %v",
				event.BankConfigID, event.TransactionID, err)
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, event CreditEvent) error {
	cfg, err := d.loader.LoadWebhookConfig(ctx)
	if err != nil {
		return fmt.Errorf("load webhook config: %w", err)
	}
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	// A couple of quick retries smooth over webhook blips; anything beyond
	// that is dropped.
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("webhook returned HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
		}
		return nil
	})
}
