package register

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

func TestDenominationsValidate(t *testing.T) {
	cases := []struct {
		name    string
		denoms  Denominations
		wantErr bool
	}{
		{"empty", Denominations{}, false},
		{"typical drawer", Denominations{500: 2, 100: 5, 10: 3}, false},
		{"zero count", Denominations{50: 0}, false},
		{"negative count", Denominations{100: -1}, true},
		{"zero note value", Denominations{0: 3}, true},
		{"negative note value", Denominations{-10: 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.denoms.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, shared.ErrBadRequest)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDenominationsTotal(t *testing.T) {
	d := Denominations{500: 2, 100: 5, 10: 3}
	require.InDelta(t, 1530, d.Total(), 0.001)
	require.Zero(t, Denominations{}.Total())
}

func TestCloseInputRejectsInvalidDenominations(t *testing.T) {
	err := CloseInput{
		RegisterID:    1,
		PhysicalCash:  1000,
		Denominations: Denominations{100: -2},
	}.Validate()
	require.ErrorIs(t, err, shared.ErrBadRequest)
}
