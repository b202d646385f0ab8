package payment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MobileMoney is a simulated mobile-money gateway. Every well-formed
// charge succeeds instantly with a generated transaction reference, which
// mirrors the collection flow of Kenyan wallet providers closely enough
// for development and testing.
type MobileMoney struct {
	logger *slog.Logger
}

// NewMobileMoney creates the simulated gateway.
func NewMobileMoney(logger *slog.Logger) *MobileMoney {
	if logger == nil {
		logger = slog.Default()
	}
	return &MobileMoney{logger: logger}
}

// Charge validates the request and settles it immediately.
func (g *MobileMoney) Charge(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()

	if !req.Amount.IsPositive() {
		return &Result{
			Succeeded:     false,
			FailureReason: "amount must be positive",
			ProcessedAt:   now,
		}, nil
	}
	if strings.TrimSpace(req.Phone) == "" {
		return &Result{
			Succeeded:     false,
			FailureReason: "missing wallet number",
			ProcessedAt:   now,
		}, nil
	}

	ref := "MM-" + uuid.NewString()
	g.logger.Info("mobile money charge settled",
		"bill_id", req.BillID,
		"phone", req.Phone,
		"amount", req.Amount.String(),
		"reference", ref,
	)

	return &Result{
		Reference:   ref,
		Succeeded:   true,
		ProcessedAt: now,
	}, nil
}
