package delivery

import (
	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/shopspring/decimal"
)

func testStatement(name string) *domain.Statement {
	return &domain.Statement{
		ReadAtText: "26/12/2024 13:04:05 UTC",
		Filename:   name,
		Header:     domain.Header{BankCode: "341", Branch: "0001", Account: "12345"},
		Transactions: []domain.Transaction{
			{Identifier: "abc", Date: "25/12/2024", Amount: decimal.RequireFromString("123.45"), Type: "D", Description: "PAGAMENTO BOLETO"},
			{Identifier: "def", Date: "26/12/2024", Amount: decimal.NewFromInt(1000), Type: "C", Description: "PIX RECEBIDO"},
		},
		Footer: domain.Footer{
			Present:            true,
			OpeningBalanceDate: "24/12/2024",
			ClosingBalance:     decimal.RequireFromString("9876.55"),
			ClosingStatus:      "C",
		},
	}
}
