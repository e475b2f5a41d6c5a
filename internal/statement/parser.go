// Package statement decodes fixed-width bank extract files into statements.
//
// Layout contract, by line index after splitting on '\n':
//
//	0, 1                 header lines, never transactions
//	2 .. footerIndex-1   transaction lines (blank lines skipped)
//	footerIndex          closing balance line
//	footerIndex+1        trailer, ignored
//
// footerIndex is len(lines)-2, or len(lines)-3 when the last element is
// blank because the file ends with a newline.
package statement

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/aristath/extrato-relay/internal/identifier"
	"github.com/rs/zerolog"
)

// ReadAtLayout formats the capture time of a statement.
const ReadAtLayout = "02/01/2006 15:04:05 MST"

var (
	errInvalidDate   = errors.New("invalid DDMMYYYY date")
	errFooterMissing = errors.New("footer line is blank")
)

// Options configures a Parser.
type Options struct {
	Strategy           identifier.Strategy // defaults to hashed
	Location           *time.Location      // timezone of ReadAtText, defaults to UTC
	Now                func() time.Time    // defaults to time.Now
	LegacyHeaderBranch bool                // take the branch from header columns [53,57)
}

// Parser turns raw extract content into domain statements.
type Parser struct {
	strategy     identifier.Strategy
	location     *time.Location
	now          func() time.Time
	headerBranch bool
	log          zerolog.Logger
}

// New creates a Parser.
func New(opts Options, log zerolog.Logger) *Parser {
	p := &Parser{
		strategy:     opts.Strategy,
		location:     opts.Location,
		now:          opts.Now,
		headerBranch: opts.LegacyHeaderBranch,
		log:          log.With().Str("component", "statement_parser").Logger(),
	}
	if p.strategy == nil {
		p.strategy = identifier.HashedStrategy{}
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Parse decodes one file. It fails with *domain.MalformedFileError when the
// filename cannot be decomposed, when the content is too short to hold the
// header, footer and trailer lines, or when the closing balance is not
// numeric. Problems confined to a single transaction line are recorded in
// Statement.Issues and that transaction is left out.
func (p *Parser) Parse(filename string, content []byte) (*domain.Statement, error) {
	name := filepath.Base(filename)

	header, err := ParseFilename(name)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	lastBlank := strings.TrimSpace(lines[len(lines)-1]) == ""
	footerIndex := len(lines) - 2
	if lastBlank {
		footerIndex = len(lines) - 3
	}
	if footerIndex < headerLines {
		return nil, &domain.MalformedFileError{
			Filename: name,
			Reason:   "file has too few lines for header, footer and trailer",
		}
	}

	readAt := p.now().In(p.location)
	stmt := &domain.Statement{
		ReadAt:       readAt,
		ReadAtText:   readAt.Format(ReadAtLayout),
		Filename:     name,
		Header:       header,
		Transactions: make([]domain.Transaction, 0, footerIndex-headerLines),
	}

	if p.headerBranch {
		if branch := strings.TrimSpace(colHeaderBranch.slice([]rune(lines[0]))); branch != "" {
			stmt.Header.Branch = branch
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if i == footerIndex {
				stmt.Issues = append(stmt.Issues, domain.Issue{Line: i + 1, Field: "footer", Err: errFooterMissing})
			}
			continue
		}

		switch {
		case i >= headerLines && i < footerIndex:
			tx, issues, ok := p.parseTransaction(stmt.Header, name, i+1, []rune(trimmed))
			stmt.Issues = append(stmt.Issues, issues...)
			if ok {
				stmt.Transactions = append(stmt.Transactions, tx)
			}
		case i == footerIndex:
			footer, issues, err := parseFooter(name, i+1, []rune(trimmed))
			if err != nil {
				return nil, &domain.MalformedFileError{Filename: name, Reason: "invalid footer", Err: err}
			}
			stmt.Footer = footer
			stmt.Issues = append(stmt.Issues, issues...)
		}
	}

	for _, issue := range stmt.Issues {
		p.log.Warn().
			Str("file", name).
			Int("line", issue.Line).
			Str("field", issue.Field).
			Str("raw", issue.Raw).
			AnErr("issue", issue.Err).
			Msg("Line decoded with issues")
	}

	p.log.Debug().
		Str("file", name).
		Str("bank", stmt.Header.BankCode).
		Str("branch", stmt.Header.Branch).
		Str("account", stmt.Header.Account).
		Int("transactions", len(stmt.Transactions)).
		Bool("footer", stmt.Footer.Present).
		Msg("Statement parsed")

	return stmt, nil
}

func (p *Parser) parseTransaction(h domain.Header, filename string, lineNo int, line []rune) (domain.Transaction, []domain.Issue, bool) {
	rawAmount := colAmount.slice(line)
	amount, err := decodeMinorUnits(rawAmount)
	if err != nil {
		decodeErr := &domain.NumericDecodeError{Filename: filename, Line: lineNo, Field: colAmount.name, Raw: rawAmount}
		return domain.Transaction{}, []domain.Issue{{Line: lineNo, Field: colAmount.name, Raw: rawAmount, Err: decodeErr}}, false
	}

	var issues []domain.Issue
	rawDate := colDate.slice(line)
	date, ok := decodeDate(rawDate)
	if !ok {
		issues = append(issues, domain.Issue{Line: lineNo, Field: colDate.name, Raw: rawDate, Err: errInvalidDate})
	}

	fields := identifier.Fields{
		RawIdentifier: colIdentifier.slice(line),
		Date:          date,
		Amount:        amount,
		Type:          colType.slice(line),
		Description:   strings.TrimSpace(colDescription.slice(line)),
	}

	return domain.Transaction{
		Identifier:  p.strategy.Identify(h, fields),
		Date:        fields.Date,
		Amount:      fields.Amount,
		Type:        fields.Type,
		Description: fields.Description,
	}, issues, true
}

func parseFooter(filename string, lineNo int, line []rune) (domain.Footer, []domain.Issue, error) {
	rawBalance := colClosingBalance.slice(line)
	balance, err := decodeMinorUnits(rawBalance)
	if err != nil {
		return domain.Footer{}, nil, &domain.NumericDecodeError{Filename: filename, Line: lineNo, Field: colClosingBalance.name, Raw: rawBalance}
	}

	var issues []domain.Issue
	rawDate := colOpeningBalanceDate.slice(line)
	date, ok := decodeDate(rawDate)
	if !ok {
		issues = append(issues, domain.Issue{Line: lineNo, Field: colOpeningBalanceDate.name, Raw: rawDate, Err: errInvalidDate})
	}

	return domain.Footer{
		Present:            true,
		OpeningBalanceDate: date,
		ClosingBalance:     balance,
		ClosingStatus:      colClosingStatus.slice(line),
	}, issues, nil
}
