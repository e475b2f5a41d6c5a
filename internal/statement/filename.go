package statement

import (
	"path/filepath"
	"strings"

	"github.com/aristath/extrato-relay/internal/domain"
)

// ParseFilename decodes bank, branch and account from an extract filename
// such as ext_341_0001_12345.000.ret. The account keeps only the part before
// the first dot.
func ParseFilename(name string) (domain.Header, error) {
	base := filepath.Base(name)
	segments := strings.Split(base, "_")
	if len(segments) < 4 {
		return domain.Header{}, &domain.MalformedFileError{
			Filename: base,
			Reason:   "filename must have at least four '_' separated segments",
		}
	}

	account, _, _ := strings.Cut(segments[3], ".")
	return domain.Header{
		BankCode: segments[1],
		Branch:   segments[2],
		Account:  account,
	}, nil
}
