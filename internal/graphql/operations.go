package graphql

import (
	"context"
	"fmt"

	"github.com/rpggio/libflow/internal/domain/library"
)

const (
	booksQuery = `
query Books {
  books {
    id
    title
    author
    published_year
    total_copies
    available_copies
  }
}`

	membersQuery = `
query Members {
  members {
    id
    name
    email
    joined_at
  }
}`

	createBookMutation = `
mutation CreateBook($title: String!, $author: String!, $published_year: Int!, $total_copies: Int!) {
  createBook(title: $title, author: $author, published_year: $published_year, total_copies: $total_copies) {
    id
    title
  }
}`

	createMemberMutation = `
mutation CreateMember($name: String!, $email: String!) {
  createMember(name: $name, email: $email) {
    id
    name
  }
}`

	borrowBookMutation = `
mutation BorrowBook($member_id: Int!, $book_id: Int!) {
  borrowBook(member_id: $member_id, book_id: $book_id) {
    id
    status
  }
}`

	returnBookMutation = `
mutation ReturnBook($borrow_id: Int!) {
  returnBook(borrow_id: $borrow_id) {
    id
    status
  }
}`
)

// Books fetches the whole catalogue. A null list is returned as empty.
func (c *Client) Books(ctx context.Context) ([]library.Book, error) {
	var data struct {
		Books []library.Book `json:"books"`
	}
	if err := c.call(ctx, "books", booksQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Books == nil {
		return []library.Book{}, nil
	}
	return data.Books, nil
}

// Members fetches every registered member. A null list is returned as empty.
func (c *Client) Members(ctx context.Context) ([]library.Member, error) {
	var data struct {
		Members []library.Member `json:"members"`
	}
	if err := c.call(ctx, "members", membersQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Members == nil {
		return []library.Member{}, nil
	}
	for _, m := range data.Members {
		if m.JoinedAt.Unparsed() {
			c.logger.Warn("unrecognised member join date", "member_id", m.ID, "joined_at", m.JoinedAt.Raw)
		}
	}
	return data.Members, nil
}

// CreateBook adds a book; available copies start equal to total copies.
func (c *Client) CreateBook(ctx context.Context, book library.NewBook) (library.BookRef, error) {
	if err := book.Validate(); err != nil {
		return library.BookRef{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var data struct {
		CreateBook library.BookRef `json:"createBook"`
	}
	err := c.call(ctx, "createBook", createBookMutation, map[string]any{
		"title":          book.Title,
		"author":         book.Author,
		"published_year": book.PublishedYear,
		"total_copies":   book.TotalCopies,
	}, &data)
	if err != nil {
		return library.BookRef{}, err
	}
	return data.CreateBook, nil
}

// CreateMember registers a member.
func (c *Client) CreateMember(ctx context.Context, member library.NewMember) (library.MemberRef, error) {
	if err := member.Validate(); err != nil {
		return library.MemberRef{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var data struct {
		CreateMember library.MemberRef `json:"createMember"`
	}
	err := c.call(ctx, "createMember", createMemberMutation, map[string]any{
		"name":  member.Name,
		"email": member.Email,
	}, &data)
	if err != nil {
		return library.MemberRef{}, err
	}
	return data.CreateMember, nil
}

// BorrowBook checks a copy of bookID out to memberID.
func (c *Client) BorrowBook(ctx context.Context, memberID, bookID int) (library.Borrow, error) {
	if err := library.ValidateID("member_id", memberID); err != nil {
		return library.Borrow{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := library.ValidateID("book_id", bookID); err != nil {
		return library.Borrow{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var data struct {
		BorrowBook library.Borrow `json:"borrowBook"`
	}
	err := c.call(ctx, "borrowBook", borrowBookMutation, map[string]any{
		"member_id": memberID,
		"book_id":   bookID,
	}, &data)
	if err != nil {
		return library.Borrow{}, err
	}
	return data.BorrowBook, nil
}

// ReturnBook closes the borrow record borrowID.
func (c *Client) ReturnBook(ctx context.Context, borrowID int) (library.Borrow, error) {
	if err := library.ValidateID("borrow_id", borrowID); err != nil {
		return library.Borrow{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var data struct {
		ReturnBook library.Borrow `json:"returnBook"`
	}
	err := c.call(ctx, "returnBook", returnBookMutation, map[string]any{
		"borrow_id": borrowID,
	}, &data)
	if err != nil {
		return library.Borrow{}, err
	}
	return data.ReturnBook, nil
}
