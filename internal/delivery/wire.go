package delivery

import (
	"encoding/json"

	"github.com/aristath/extrato-relay/internal/domain"
)

// Payload is the request body accepted by the ingestion endpoint.
type Payload struct {
	Statements []StatementDTO `json:"movimentacoesPorArquivo"`
}

// StatementDTO is the wire form of a statement.
type StatementDTO struct {
	ReadAt             string           `json:"dataLeitura"`
	Filename           string           `json:"nomeArquivo"`
	Branch             string           `json:"agencia"`
	BankCode           string           `json:"codigoBanco"`
	Account            string           `json:"numeroConta"`
	Transactions       []TransactionDTO `json:"movimentacoes"`
	OpeningBalanceDate string           `json:"dataSaldoInicial,omitempty"`
	ClosingBalance     *json.Number     `json:"saldoFinal,omitempty"`
	ClosingStatus      string           `json:"situacaoSaldoFinal,omitempty"`
}

// TransactionDTO is the wire form of a transaction.
type TransactionDTO struct {
	Identifier  string      `json:"identificador"`
	Date        string      `json:"data"`
	Amount      json.Number `json:"valor"`
	Type        string      `json:"tipo"`
	Description string      `json:"descricao"`
}

// NewPayload converts a batch to its wire form. Amounts are emitted as JSON
// numbers in their shortest exact decimal text.
func NewPayload(batch []*domain.Statement) Payload {
	p := Payload{Statements: make([]StatementDTO, 0, len(batch))}
	for _, s := range batch {
		dto := StatementDTO{
			ReadAt:       s.ReadAtText,
			Filename:     s.Filename,
			Branch:       s.Header.Branch,
			BankCode:     s.Header.BankCode,
			Account:      s.Header.Account,
			Transactions: make([]TransactionDTO, 0, len(s.Transactions)),
		}
		for _, tx := range s.Transactions {
			dto.Transactions = append(dto.Transactions, TransactionDTO{
				Identifier:  tx.Identifier,
				Date:        tx.Date,
				Amount:      json.Number(tx.Amount.String()),
				Type:        tx.Type,
				Description: tx.Description,
			})
		}
		if s.Footer.Present {
			balance := json.Number(s.Footer.ClosingBalance.String())
			dto.OpeningBalanceDate = s.Footer.OpeningBalanceDate
			dto.ClosingBalance = &balance
			dto.ClosingStatus = s.Footer.ClosingStatus
		}
		p.Statements = append(p.Statements, dto)
	}
	return p
}

// normalizeBody returns body as-is when it is JSON, otherwise the body text
// encoded as a JSON string. An empty body becomes null.
func normalizeBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return quote(string(body))
}

func quote(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
