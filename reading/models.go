// Package reading defines meter reading submissions and bulk upload results.
package reading

// Submission is one meter reading row keyed by the customer's account number,
// as produced by a bulk upload file.
type Submission struct {
	AccountNumber string `json:"account_number"`
	NewReading    int64  `json:"new_reading"`
}

// RowError records why a single bulk row was rejected.
type RowError struct {
	AccountNumber string `json:"account_number"`
	Reason        string `json:"reason"`
}

// BulkResult aggregates the outcome of a best-effort bulk submission.
// SuccessCount + ErrorCount always equals the number of submitted rows,
// and every rejected row appears exactly once in Errors.
type BulkResult struct {
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	Errors       []RowError `json:"errors"`
}

// AddError records a rejected row.
func (r *BulkResult) AddError(accountNumber, reason string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RowError{AccountNumber: accountNumber, Reason: reason})
}
