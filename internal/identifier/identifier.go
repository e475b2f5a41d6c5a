// Package identifier derives stable transaction identifiers.
package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// Simple uses the trimmed positional identifier field as-is.
	Simple = "simple"
	// Hashed uses a SHA-256 digest over the account and transaction fields.
	Hashed = "hashed"

	separator = "|"
)

// Fields are the decoded values of one transaction line.
type Fields struct {
	RawIdentifier string
	Date          string
	Amount        decimal.Decimal
	Type          string
	Description   string
}

// Strategy computes the identifier of a transaction within a statement.
type Strategy interface {
	Name() string
	Identify(h domain.Header, f Fields) string
}

// FromName returns the strategy registered under name.
func FromName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Hashed, "":
		return HashedStrategy{}, nil
	case Simple:
		return SimpleStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown identifier strategy %q (want %s or %s)", name, Simple, Hashed)
	}
}

// SimpleStrategy is the legacy mode. Blank or repeated raw fields produce
// colliding identifiers.
type SimpleStrategy struct{}

func (SimpleStrategy) Name() string { return Simple }

func (SimpleStrategy) Identify(_ domain.Header, f Fields) string {
	return strings.TrimSpace(f.RawIdentifier)
}

// HashedStrategy digests bank, branch, account, raw identifier, date,
// amount, type and description, in that order.
type HashedStrategy struct{}

func (HashedStrategy) Name() string { return Hashed }

func (HashedStrategy) Identify(h domain.Header, f Fields) string {
	parts := []string{
		h.BankCode,
		h.Branch,
		h.Account,
		strings.TrimSpace(f.RawIdentifier),
		f.Date,
		f.Amount.String(),
		f.Type,
		f.Description,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}
