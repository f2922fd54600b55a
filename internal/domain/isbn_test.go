package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidISBN13(t *testing.T) {
	tests := []struct {
		name string
		isbn string
		want bool
	}{
		{name: "valid checksum", isbn: "9780134190440", want: true},
		{name: "wrong length", isbn: "978013419044", want: false},
		{name: "non-numeric", isbn: "978013419044X", want: false},
		{name: "bad checksum", isbn: "9780134190441", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidISBN13(tc.isbn))
		})
	}
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780134190440", NormalizeISBN("978-0-13-419044-0"))
	assert.Equal(t, "9780134190440", NormalizeISBN("978 0134190440"))
	assert.Equal(t, "9780134190440", NormalizeISBN("9780134190440"))
}

func TestParseISBN(t *testing.T) {
	isbn, err := ParseISBN("978-0-13-419044-0")
	assert.NoError(t, err)
	assert.Equal(t, "9780134190440", isbn)

	_, err = ParseISBN("not-an-isbn")
	assert.ErrorIs(t, err, ErrInvalidISBN)
}
