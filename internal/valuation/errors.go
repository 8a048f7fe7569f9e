package valuation

import "fmt"

// IntegrityError reports a ledger whose replay is inconsistent, e.g. a sale
// that exceeds the shares held at that point. It must surface to the caller
// rather than being absorbed into a silently wrong position.
type IntegrityError struct {
	UserID    string
	Portfolio string
	Ticker    string
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation for %s/%s %s: %s",
		e.UserID, e.Portfolio, e.Ticker, e.Reason)
}
