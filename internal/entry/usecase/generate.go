package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
)

const entryNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codeSpace = big.NewInt(1_000_000)

// generateCode returns a uniformly distributed, zero padded 6 digit code.
func generateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateEntryNumber(r io.Reader) (string, error) {
	alphabet := big.NewInt(int64(len(entryNumberAlphabet)))

	var b strings.Builder
	b.WriteString(entity.EntryNumberPrefix)
	for range 6 {
		n, err := rand.Int(r, alphabet)
		if err != nil {
			return "", err
		}
		b.WriteByte(entryNumberAlphabet[n.Int64()])
	}
	return b.String(), nil
}
