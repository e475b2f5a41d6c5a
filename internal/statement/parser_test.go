package statement

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/aristath/extrato-relay/internal/identifier"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleName = "ext_341_0001_12345.000.ret"

func newTestParser(opts Options) *Parser {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return New(opts, zerolog.Nop())
}

func TestParse_SampleFile(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})

	stmt, err := p.Parse("/data/ofx/"+sampleName, sampleFile())
	require.NoError(t, err)

	assert.Equal(t, sampleName, stmt.Filename)
	assert.Equal(t, domain.Header{BankCode: "341", Branch: "0001", Account: "12345"}, stmt.Header)
	assert.Equal(t, "26/12/2024 13:04:05 UTC", stmt.ReadAtText)
	assert.Empty(t, stmt.Issues)

	require.Len(t, stmt.Transactions, 2)

	first := stmt.Transactions[0]
	assert.Equal(t, "00000000000000001", first.Identifier)
	assert.Equal(t, "25/12/2024", first.Date)
	assert.True(t, decimal.RequireFromString("123.45").Equal(first.Amount))
	assert.Equal(t, "D", first.Type)
	assert.Equal(t, "PAGAMENTO BOLETO", first.Description)

	second := stmt.Transactions[1]
	assert.Equal(t, "00000000000000002", second.Identifier)
	assert.True(t, decimal.NewFromInt(1000).Equal(second.Amount))
	assert.Equal(t, "C", second.Type)

	assert.True(t, stmt.Footer.Present)
	assert.Equal(t, "24/12/2024", stmt.Footer.OpeningBalanceDate)
	assert.True(t, decimal.RequireFromString("9876.55").Equal(stmt.Footer.ClosingBalance))
	assert.Equal(t, "C", stmt.Footer.ClosingStatus)
}

func TestParse_WithoutTrailingNewline(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})
	content := strings.TrimSuffix(string(sampleFile()), "\n")

	stmt, err := p.Parse(sampleName, []byte(content))
	require.NoError(t, err)

	require.Len(t, stmt.Transactions, 2)
	assert.Equal(t, "24/12/2024", stmt.Footer.OpeningBalanceDate)
}

func TestParse_TrailingBlankShiftsFooter(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})

	// Without the trailer record, the newline makes the last transaction the footer.
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "A"),
		bodyLine("00000000000000002", "26122024", "000000000000000100", "C", "B"),
		footerLine("24122024", "000000000000000500", "D"),
		"",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, "00000000000000001", stmt.Transactions[0].Identifier)
	assert.Equal(t, "26/12/2024", stmt.Footer.OpeningBalanceDate)
	assert.True(t, decimal.NewFromInt(1).Equal(stmt.Footer.ClosingBalance))
}

func TestParse_BodyLinesInOrder(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})

	for _, n := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("%d_lines", n), func(t *testing.T) {
			lines := []string{headerLine(""), headerLine("")}
			for i := 0; i < n; i++ {
				lines = append(lines, bodyLine(fmt.Sprintf("%017d", i), "01012024", "000000000000000001", "C", "X"))
			}
			lines = append(lines, footerLine("01012024", "000000000000000000", "C"), "TRAILER", "")

			stmt, err := p.Parse(sampleName, joinLines(lines...))
			require.NoError(t, err)
			require.Len(t, stmt.Transactions, n)
			for i, tx := range stmt.Transactions {
				assert.Equal(t, fmt.Sprintf("%017d", i), tx.Identifier)
			}
		})
	}
}

func TestParse_SkipsBlankBodyLines(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "A"),
		"   ",
		bodyLine("00000000000000002", "26122024", "000000000000000100", "C", "B"),
		footerLine("24122024", "000000000000000500", "D"),
		"TRAILER",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	assert.Len(t, stmt.Transactions, 2)
}

func TestParse_CRLF(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})
	content := strings.ReplaceAll(string(sampleFile()), "\n", "\r\n")

	stmt, err := p.Parse(sampleName, []byte(content))
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 2)
	assert.Equal(t, "C", stmt.Footer.ClosingStatus)
}

func TestParse_TooShort(t *testing.T) {
	p := newTestParser(Options{})

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"single newline", "\n"},
		{"three lines", "a\nb\nc"},
		{"three lines and newline", "a\nb\nc\n"},
		{"footer without balance", "a\nb\nc\nd\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(sampleName, []byte(tt.content))
			var malformed *domain.MalformedFileError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, sampleName, malformed.Filename)
		})
	}
}

func TestParse_MinimalStructureHasNoTransactions(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(headerLine(""), headerLine(""), footerLine("01012024", "000000000000000042", "C"), "TRAILER")

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	assert.Empty(t, stmt.Transactions)
	assert.True(t, decimal.RequireFromString("0.42").Equal(stmt.Footer.ClosingBalance))
}

func TestParse_BadFilename(t *testing.T) {
	p := newTestParser(Options{})

	_, err := p.Parse("extrato.ret", sampleFile())
	var malformed *domain.MalformedFileError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "extrato.ret", malformed.Filename)
}

func TestParse_NonNumericAmountSkipsTransaction(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.SimpleStrategy{}})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "0000000000000123X5", "D", "BROKEN"),
		bodyLine("00000000000000002", "26122024", "000000000000000100", "C", "OK"),
		footerLine("24122024", "000000000000000500", "D"),
		"TRAILER",
		"",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)

	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, "OK", stmt.Transactions[0].Description)

	require.Len(t, stmt.Issues, 1)
	issue := stmt.Issues[0]
	assert.Equal(t, 3, issue.Line)
	assert.Equal(t, "amount", issue.Field)

	var numErr *domain.NumericDecodeError
	require.True(t, errors.As(issue.Err, &numErr))
	assert.Equal(t, "0000000000000123X5", numErr.Raw)
	assert.Equal(t, sampleName, numErr.Filename)
	assert.Equal(t, 3, numErr.Line)
}

func TestParse_ShortBodyLineIsNumericError(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		"00000000000000001 TOO SHORT",
		footerLine("24122024", "000000000000000500", "D"),
		"TRAILER",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	assert.Empty(t, stmt.Transactions)
	require.Len(t, stmt.Issues, 1)
	assert.Equal(t, "", stmt.Issues[0].Raw)
}

func TestParse_NonNumericClosingBalanceRejectsFile(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "A"),
		footerLine("24122024", "00000000000000ABCD", "D"),
		"TRAILER",
	)

	_, err := p.Parse(sampleName, content)

	var malformed *domain.MalformedFileError
	require.True(t, errors.As(err, &malformed))
	var numErr *domain.NumericDecodeError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "closing_balance", numErr.Field)
	assert.Equal(t, 4, numErr.Line)
}

func TestParse_InvalidDatePropagatesRaw(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "31022024", "000000000000012345", "D", "A"),
		footerLine("2412202X", "000000000000000500", "D"),
		"TRAILER",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)

	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, "31022024", stmt.Transactions[0].Date)
	assert.Equal(t, "2412202X", stmt.Footer.OpeningBalanceDate)
	require.Len(t, stmt.Issues, 2)
	assert.Equal(t, "date", stmt.Issues[0].Field)
	assert.Equal(t, "opening_balance_date", stmt.Issues[1].Field)
}

func TestParse_BlankFooterLine(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "A"),
		"",
		"TRAILER",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	assert.False(t, stmt.Footer.Present)
	require.Len(t, stmt.Issues, 1)
	assert.Equal(t, "footer", stmt.Issues[0].Field)
}

func TestParse_LegacyHeaderBranch(t *testing.T) {
	stmt, err := newTestParser(Options{LegacyHeaderBranch: true}).Parse(sampleName, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, "9999", stmt.Header.Branch)

	stmt, err = newTestParser(Options{}).Parse(sampleName, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, "0001", stmt.Header.Branch)
}

func TestParse_HashedIdentifiersStable(t *testing.T) {
	p := newTestParser(Options{Strategy: identifier.HashedStrategy{}})

	first, err := p.Parse(sampleName, sampleFile())
	require.NoError(t, err)
	second, err := p.Parse(sampleName, sampleFile())
	require.NoError(t, err)

	require.Len(t, first.Transactions, 2)
	for i := range first.Transactions {
		assert.Len(t, first.Transactions[i].Identifier, 64)
		assert.Equal(t, first.Transactions[i].Identifier, second.Transactions[i].Identifier)
	}
	assert.NotEqual(t, first.Transactions[0].Identifier, first.Transactions[1].Identifier)
}

func TestParse_MultibyteDescription(t *testing.T) {
	p := newTestParser(Options{})
	content := joinLines(
		headerLine(""),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "AÇÚCAR E CAFÉ"),
		footerLine("24122024", "000000000000000500", "D"),
		"TRAILER",
	)

	stmt, err := p.Parse(sampleName, content)
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, "AÇÚCAR E CAFÉ", stmt.Transactions[0].Description)
}

func TestParse_ReadAtTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	stmt, err := newTestParser(Options{Location: loc}).Parse(sampleName, sampleFile())
	require.NoError(t, err)
	assert.Equal(t, "26/12/2024 10:04:05 -03", stmt.ReadAtText)
}
