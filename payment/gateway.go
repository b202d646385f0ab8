// Package payment abstracts the money mover behind the engine's PayBill
// operation. Gateway implementations decide whether a charge succeeds;
// the engine only ever sees a Result.
package payment

import (
	"context"
	"time"

	"github.com/dee-mee/aquatrack/types"
)

// Request describes a single charge attempt against a customer's
// mobile-money wallet.
type Request struct {
	BillID      string      // reference carried through to the statement
	Phone       string      // E.164-like wallet number
	Amount      types.Money // positive amount to collect
	Description string
}

// Result is the gateway's verdict on a charge attempt. A declined charge
// is a Result with Succeeded=false, not an error; errors are reserved for
// transport and configuration failures.
type Result struct {
	Reference     string // gateway transaction reference, empty on decline
	Succeeded     bool
	FailureReason string
	ProcessedAt   time.Time
}

// Gateway is implemented by payment processors.
type Gateway interface {
	Charge(ctx context.Context, req Request) (*Result, error)
}
