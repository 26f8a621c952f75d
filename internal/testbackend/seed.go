package testbackend

import (
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
)

// Seed loads a small sample catalogue.
func (b *Backend) Seed() {
	b.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", PublishedYear: 1965, TotalCopies: 5, AvailableCopies: 3})
	b.AddBook(library.Book{Title: "Neuromancer", Author: "William Gibson", PublishedYear: 1984, TotalCopies: 2, AvailableCopies: 2})
	b.AddBook(library.Book{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", PublishedYear: 1969, TotalCopies: 3, AvailableCopies: 1})
	b.AddMember("Alice Johnson", "alice@example.com", time.Date(2023, time.January, 15, 10, 0, 0, 0, time.UTC))
	b.AddMember("Bob Smith", "bob@example.com", time.Date(2023, time.March, 2, 9, 30, 0, 0, time.UTC))
}
