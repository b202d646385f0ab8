// Package aquatrack provides an embeddable water-utility billing engine for Go applications.
//
// AquaTrack is designed as a library, not a service. Import it directly into
// your Go application and put whatever surface you like in front of it. It
// provides:
//
//   - Customer records keyed by stable account and meter numbers
//   - Bills derived from meter reading pairs with integer money arithmetic
//   - An approval/payment state machine with time-based overdue promotion
//   - Best-effort bulk reading ingestion from CSV uploads
//   - Pluggable payment gateway integration (simulated mobile money built-in)
//   - SMS payment reminders behind a swappable Messenger
//   - Lifecycle plugins for audit trails and metrics
//
// # Quick Start
//
// Create an engine instance with your preferred store:
//
//	import (
//	    "github.com/dee-mee/aquatrack"
//	    "github.com/dee-mee/aquatrack/store/sqlite"
//	)
//
//	// Initialize store
//	store, err := sqlite.New("aquatrack.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	l := aquatrack.New(store)
//
//	// Start the engine (runs migrations and background workers)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Customers hold a monotonically advancing reading checkpoint:
//
//	c := &customer.Customer{
//	    Name:          "John Mwangi",
//	    AccountNumber: "AT-001",
//	    MeterNumber:   "MT-1001",
//	    LastReading:   1200,
//	}
//	err := l.CreateCustomer(ctx, c)
//
// Readings derive bills; the checkpoint only advances when a bill is created:
//
//	b, err := l.SubmitReading(ctx, "AT-001", 1265)
//	// b.Consumption == 65, b.AmountDue == KES 97.50 at the standard rate
//
// Bills move through an explicit state machine:
//
//	b, err = l.ApproveBill(ctx, b.ID)       // PendingApproval → Unpaid
//	ok, err := l.PayBill(ctx, b.ID, phone)  // Unpaid/Overdue → Paid
//
// Payment attempts against unapproved or already-paid bills report false
// with a nil error: they are expected business outcomes, not faults.
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest currency
// unit (cents for KES and USD, pence for GBP, etc).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	cust_01h2xcejqtf2nbrexx3vqjhp41  // Customer ID
//	bill_01h2xcejqtf2nbrexx3vqjhp41  // Bill ID
//	acct_01h455vb4pex5vsknk084sn02q  // Account ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package aquatrack
