package library_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/stretchr/testify/require"
)

func TestBookValidate(t *testing.T) {
	tests := []struct {
		name string
		book library.Book
		ok   bool
	}{
		{name: "all available", book: library.Book{ID: 1, TotalCopies: 3, AvailableCopies: 3}, ok: true},
		{name: "none available", book: library.Book{ID: 1, TotalCopies: 3, AvailableCopies: 0}, ok: true},
		{name: "empty shelf", book: library.Book{ID: 1}, ok: true},
		{name: "more available than owned", book: library.Book{ID: 1, TotalCopies: 1, AvailableCopies: 2}},
		{name: "negative available", book: library.Book{ID: 1, TotalCopies: 1, AvailableCopies: -1}},
		{name: "negative total", book: library.Book{ID: 1, TotalCopies: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, library.ErrInconsistentBook)
		})
	}
}

func TestBookOnLoan(t *testing.T) {
	require.Equal(t, 2, library.Book{TotalCopies: 3, AvailableCopies: 1}.OnLoan())
}

func TestNewBookValidate(t *testing.T) {
	valid := library.NewBook{Title: "Dune", Author: "Herbert", PublishedYear: 1965, TotalCopies: 3}
	require.NoError(t, valid.Validate())

	noTitle := valid
	noTitle.Title = ""
	require.ErrorIs(t, noTitle.Validate(), library.ErrInvalidInput)

	noCopies := valid
	noCopies.TotalCopies = 0
	require.ErrorIs(t, noCopies.Validate(), library.ErrInvalidInput)

	future := valid
	future.PublishedYear = time.Now().Year() + 5
	require.ErrorIs(t, future.Validate(), library.ErrInvalidInput)
}

func TestNewMemberValidate(t *testing.T) {
	require.NoError(t, library.NewMember{Name: "Ada", Email: "ada@example.com"}.Validate())
	require.ErrorIs(t, library.NewMember{Name: "Ada", Email: "not-an-email"}.Validate(), library.ErrInvalidInput)
	require.ErrorIs(t, library.NewMember{Email: "ada@example.com"}.Validate(), library.ErrInvalidInput)
}

func TestValidateID(t *testing.T) {
	require.NoError(t, library.ValidateID("book_id", 7))
	require.ErrorIs(t, library.ValidateID("book_id", 0), library.ErrInvalidInput)
	require.ErrorIs(t, library.ValidateID("book_id", -4), library.ErrInvalidInput)
}

func TestTimestampFormats(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

	inputs := []string{
		"2024-03-09T14:30:00Z",
		"2024-03-09T14:30:00",
		"2024-03-09 14:30:00 +0000 UTC",
		"2024-03-09 14:30:00.000000 +0000 UTC",
		"2024-03-09 14:30:00 +0000 UTC m=+0.000000001",
		"2024-03-09 14:30:00",
	}
	for _, in := range inputs {
		ts, err := library.ParseTimestamp(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(ts.Time), "%s parsed as %s", in, ts.Time)
	}

	day, err := library.ParseTimestamp("2024-03-09")
	require.NoError(t, err)
	require.Equal(t, 9, day.Day())

	_, err = library.ParseTimestamp("yesterday")
	require.ErrorIs(t, err, library.ErrInvalidInput)
}

func TestMemberDecode(t *testing.T) {
	var members []library.Member
	raw := `[{"id":1,"name":"Ada","email":"ada@example.com","joined_at":"2023-01-15T10:00:00Z"},
	         {"id":2,"name":"Bob","email":"bob@example.com","joined_at":null},
	         {"id":3,"name":"Cy","email":"cy@example.com","joined_at":"15/01/2023"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &members))
	require.Len(t, members, 3)
	require.True(t, members[2].JoinedAt.Unparsed())
	require.Equal(t, "15/01/2023", members[2].JoinedAt.Raw)
	require.Equal(t, 2023, members[0].JoinedAt.Year())
	require.True(t, members[1].JoinedAt.IsZero())

	out, err := json.Marshal(members[0])
	require.NoError(t, err)
	require.Contains(t, string(out), `"joined_at":"2023-01-15T10:00:00Z"`)
}
