package statement

import (
	"strings"
	"time"
)

var fixedNow = time.Date(2024, 12, 26, 13, 4, 5, 0, time.UTC)

// bodyLine lays out a transaction record at the documented offsets.
func bodyLine(id, date, amount, typ, desc string) string {
	var b strings.Builder
	b.WriteString(pad(id, 142))
	b.WriteString(date)
	b.WriteString(amount)
	b.WriteString(typ)
	b.WriteString(pad("0000000", 7))
	b.WriteString(pad(desc, 58))
	b.WriteString("000")
	return b.String()
}

// footerLine lays out a closing balance record.
func footerLine(date, balance, status string) string {
	return pad("34100013", 142) + date + balance + status + strings.Repeat("0", 20)
}

func headerLine(branch string) string {
	return pad("34100000         "+strings.Repeat("0", 36)+branch, 240)
}

func pad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

func joinLines(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

// sampleFile has two header lines, two transactions, a footer, a trailer and
// ends with a newline.
func sampleFile() []byte {
	return joinLines(
		headerLine("9999"),
		headerLine(""),
		bodyLine("00000000000000001", "25122024", "000000000000012345", "D", "PAGAMENTO BOLETO"),
		bodyLine("00000000000000002", "26122024", "000000000000100000", "C", "PIX RECEBIDO"),
		footerLine("24122024", "000000000000987655", "C"),
		pad("34199999", 240),
		"",
	)
}
