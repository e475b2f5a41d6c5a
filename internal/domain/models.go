// Package domain holds the statement model shared by the parser, the
// delivery pipeline and the run orchestration.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Header carries the account coordinates decoded from the extract filename.
type Header struct {
	BankCode string
	Branch   string
	Account  string // account number without the check-digit suffix
}

// Transaction is one line-item movement of a statement.
type Transaction struct {
	Identifier  string
	Date        string // DD/MM/YYYY, or the raw field when it is not a valid date
	Amount      decimal.Decimal
	Type        string // D or C, verbatim
	Description string
}

// Footer is the closing-balance record found near the end of the file.
type Footer struct {
	Present            bool
	OpeningBalanceDate string
	ClosingBalance     decimal.Decimal
	ClosingStatus      string
}

// Issue is a non-fatal problem found while decoding a single line.
type Issue struct {
	Line  int // 1-based
	Field string
	Raw   string
	Err   error
}

// Statement is one parsed extract file. It is built once by the parser and
// not modified afterwards.
type Statement struct {
	ReadAt       time.Time
	ReadAtText   string
	Filename     string
	Header       Header
	Transactions []Transaction
	Footer       Footer
	Issues       []Issue
}
