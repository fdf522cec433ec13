package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumAddress(t *testing.T) {
	// Векторы из EIP-55.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, v := range vectors {
		t.Run(v, func(t *testing.T) {
			assert.Equal(t, v, ChecksumAddress(v))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"lower case":        {in: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		"valid checksum":    {in: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		"upper case":        {in: "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		"surrounding space": {in: "  0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed ", want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		"broken checksum":   {in: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", wantErr: true},
		"too short":         {in: "0x1234", wantErr: true},
		"no prefix":         {in: "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", wantErr: true},
		"not hex":           {in: "0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeAddress(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("0xABC", "0xabc"))
	assert.False(t, SameAddress("", ""))
	assert.False(t, SameAddress("0xabc", "0xabd"))
}
