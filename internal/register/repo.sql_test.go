package register

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRow struct {
	denoms []byte
}

func (r stubRow) Scan(dest ...any) error {
	for _, d := range dest {
		if b, ok := d.(*[]byte); ok {
			*b = r.denoms
		}
	}
	return nil
}

func TestScanRegisterDecodesDenominations(t *testing.T) {
	reg, err := scanRegister(stubRow{denoms: []byte(`{"500":2,"100":5}`)})
	require.NoError(t, err)
	require.Equal(t, Denominations{500: 2, 100: 5}, reg.Denominations)
}

func TestScanRegisterRejectsCorruptDenominations(t *testing.T) {
	_, err := scanRegister(stubRow{denoms: []byte(`{broken`)})
	require.Error(t, err)
}
