package library

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// earliestYear bounds published_year from below; anything older is a typo.
const earliestYear = -3000

// Validate checks the copy-count invariant of a fetched book.
func (b Book) Validate() error {
	err := validation.ValidateStruct(&b,
		validation.Field(&b.TotalCopies, validation.Min(0)),
		validation.Field(&b.AvailableCopies, validation.Min(0), validation.Max(b.TotalCopies)),
	)
	if err != nil {
		return fmt.Errorf("%w: book %d: %v", ErrInconsistentBook, b.ID, err)
	}
	return nil
}

// Validate checks a createBook request before it is sent.
func (n NewBook) Validate() error {
	err := validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&n.Author, validation.Required, validation.Length(1, 256)),
		validation.Field(&n.PublishedYear, validation.Min(earliestYear), validation.Max(Now().Year()+1)),
		validation.Field(&n.TotalCopies, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Validate checks a createMember request before it is sent.
func (n NewMember) Validate() error {
	err := validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&n.Email, validation.Required, is.EmailFormat),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateID checks an identifier used in a mutation.
func ValidateID(name string, id int) error {
	if err := validation.Validate(id, validation.Required, validation.Min(1)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
	}
	return nil
}
