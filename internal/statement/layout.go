package statement

// column is a half-open [start, end) character range on a trimmed line.
type column struct {
	name       string
	start, end int
}

var (
	colIdentifier  = column{"identifier", 0, 17}
	colDate        = column{"date", 142, 150}
	colAmount      = column{"amount", 150, 168}
	colType        = column{"type", 168, 169}
	colDescription = column{"description", 176, 234}

	colOpeningBalanceDate = column{"opening_balance_date", 142, 150}
	colClosingBalance     = column{"closing_balance", 150, 168}
	colClosingStatus      = column{"closing_status", 168, 169}

	// legacy layout: branch code printed on the first header line
	colHeaderBranch = column{"header_branch", 53, 57}
)

// headerLines is the number of leading lines that are never transactions.
const headerLines = 2

// slice returns the characters of line covered by c, clamped to the line
// length so short lines yield a partial or empty field.
func (c column) slice(line []rune) string {
	start, end := c.start, c.end
	if start > len(line) {
		start = len(line)
	}
	if end > len(line) {
		end = len(line)
	}
	return string(line[start:end])
}
