package library

import "time"

// Book is a catalogue entry as served by the backend.
type Book struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublishedYear   int    `json:"published_year"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// OnLoan returns the number of copies currently checked out.
func (b Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// Member is a registered library patron.
type Member struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt Timestamp `json:"joined_at"`
}

// BorrowStatus represents the lifecycle status of a borrow record
type BorrowStatus string

const (
	StatusBorrowed BorrowStatus = "borrowed"
	StatusReturned BorrowStatus = "returned"
)

// Borrow links a member to a checked-out copy of a book.
type Borrow struct {
	ID         int          `json:"id"`
	MemberID   int          `json:"member_id,omitempty"`
	BookID     int          `json:"book_id,omitempty"`
	BorrowDate *Timestamp   `json:"borrow_date,omitempty"`
	ReturnDate *Timestamp   `json:"return_date,omitempty"`
	Status     BorrowStatus `json:"status"`
}

// BookRef is what the backend echoes back after createBook.
type BookRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// MemberRef is what the backend echoes back after createMember.
type MemberRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewBook describes a book to be created.
type NewBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	PublishedYear int    `json:"published_year"`
	TotalCopies   int    `json:"total_copies"`
}

// NewMember describes a member to be registered.
type NewMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Now is overridable in tests that need a stable clock for year checks.
var Now = time.Now
