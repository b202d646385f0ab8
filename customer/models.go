// Package customer defines the water customer entity and its store contract.
package customer

import (
	"time"

	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

// Customer is a metered water account holder. AccountNumber and MeterNumber
// are unique, stable, human-facing identifiers. LastReading is the reading
// checkpoint: it only advances when a new bill is successfully derived and
// is monotonically non-decreasing over the customer's lifetime.
type Customer struct {
	types.Entity
	ID              id.CustomerID `json:"id"`
	Name            string        `json:"name"`
	AccountNumber   string        `json:"account_number"`
	MeterNumber     string        `json:"meter_number"`
	Phone           string        `json:"phone"` // E.164-like, e.g. "254712345678"
	LastReading     int64         `json:"last_reading"` // cubic meters
	LastReadingDate time.Time     `json:"last_reading_date"`
}

// ListOpts controls customer listing.
type ListOpts struct {
	Limit  int
	Offset int
}
