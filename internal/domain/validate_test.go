package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Book(t *testing.T) {
	tests := []struct {
		name      string
		book      Book
		wantError bool
	}{
		{
			name: "valid book",
			book: Book{
				ISBN:            "9780134190440",
				Title:           "The Go Programming Language",
				Genre:           "technology",
				PublicationYear: 2015,
				TotalCopies:     3,
				AvailableCopies: 3,
				AuthorIDs:       []string{"a_donovan"},
			},
			wantError: false,
		},
		{
			name: "missing title",
			book: Book{
				ISBN:            "9780134190440",
				Genre:           "technology",
				PublicationYear: 2015,
				TotalCopies:     3,
				AvailableCopies: 3,
				AuthorIDs:       []string{"a_donovan"},
			},
			wantError: true,
		},
		{
			name: "no authors",
			book: Book{
				ISBN:            "9780134190440",
				Title:           "The Go Programming Language",
				Genre:           "technology",
				PublicationYear: 2015,
				TotalCopies:     3,
				AvailableCopies: 3,
				AuthorIDs:       []string{},
			},
			wantError: true,
		},
		{
			name: "isbn wrong length",
			book: Book{
				ISBN:            "123",
				Title:           "Short ISBN",
				Genre:           "technology",
				PublicationYear: 2015,
				TotalCopies:     3,
				AvailableCopies: 3,
				AuthorIDs:       []string{"a_donovan"},
			},
			wantError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.book)
			if tc.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Patron(t *testing.T) {
	tests := []struct {
		name      string
		patron    Patron
		wantError bool
	}{
		{
			name: "valid patron",
			patron: Patron{
				ID:               "p_anderson_01",
				Name:             "Anderson",
				Email:            "anderson@example.com",
				MembershipStatus: MembershipActive,
			},
			wantError: false,
		},
		{
			name: "invalid email",
			patron: Patron{
				ID:               "p_anderson_01",
				Name:             "Anderson",
				Email:            "not-an-email",
				MembershipStatus: MembershipActive,
			},
			wantError: true,
		},
		{
			name: "invalid membership status",
			patron: Patron{
				ID:               "p_anderson_01",
				Name:             "Anderson",
				Email:            "anderson@example.com",
				MembershipStatus: "banned",
			},
			wantError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.patron)
			if tc.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
