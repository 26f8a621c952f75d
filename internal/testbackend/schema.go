package testbackend

import (
	"github.com/graphql-go/graphql"
	"github.com/rpggio/libflow/internal/domain/library"
)

func (b *Backend) buildSchema() (graphql.Schema, error) {
	memberType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Member",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.Int},
			"name":      &graphql.Field{Type: graphql.String},
			"email":     &graphql.Field{Type: graphql.String},
			"joined_at": &graphql.Field{Type: graphql.String},
		},
	})
	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.Int},
			"title":            &graphql.Field{Type: graphql.String},
			"author":           &graphql.Field{Type: graphql.String},
			"published_year":   &graphql.Field{Type: graphql.Int},
			"total_copies":     &graphql.Field{Type: graphql.Int},
			"available_copies": &graphql.Field{Type: graphql.Int},
		},
	})
	borrowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Borrow",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"member_id":   &graphql.Field{Type: graphql.Int},
			"book_id":     &graphql.Field{Type: graphql.Int},
			"borrow_date": &graphql.Field{Type: graphql.String},
			"return_date": &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"books": &graphql.Field{
				Type:    graphql.NewList(bookType),
				Resolve: b.resolveBooks,
			},
			"members": &graphql.Field{
				Type:    graphql.NewList(memberType),
				Resolve: b.resolveMembers,
			},
			"borrows": &graphql.Field{
				Type:    graphql.NewList(borrowType),
				Resolve: b.resolveBorrows,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createBook": &graphql.Field{
				Type: bookType,
				Args: graphql.FieldConfigArgument{
					"title":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"author":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"published_year": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"total_copies":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: b.resolveCreateBook,
			},
			"createMember": &graphql.Field{
				Type: memberType,
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: b.resolveCreateMember,
			},
			"borrowBook": &graphql.Field{
				Type: borrowType,
				Args: graphql.FieldConfigArgument{
					"member_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"book_id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: b.resolveBorrowBook,
			},
			"returnBook": &graphql.Field{
				Type: borrowType,
				Args: graphql.FieldConfigArgument{
					"borrow_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: b.resolveReturnBook,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

func (b *Backend) resolveBooks(graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("books"); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(b.books))
	for _, id := range sortedKeys(b.books) {
		out = append(out, bookFields(b.books[id]))
	}
	return out, nil
}

func (b *Backend) resolveMembers(graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("members"); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(b.members))
	for _, id := range sortedKeys(b.members) {
		out = append(out, memberFields(b.members[id]))
	}
	return out, nil
}

func (b *Backend) resolveBorrows(graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("borrows"); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(b.borrows))
	for _, id := range sortedKeys(b.borrows) {
		out = append(out, borrowFields(b.borrows[id]))
	}
	return out, nil
}

func (b *Backend) resolveCreateBook(p graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("createBook"); err != nil {
		return nil, err
	}
	total := p.Args["total_copies"].(int)
	book := library.Book{
		ID:              b.allocID(),
		Title:           p.Args["title"].(string),
		Author:          p.Args["author"].(string),
		PublishedYear:   p.Args["published_year"].(int),
		TotalCopies:     total,
		AvailableCopies: total,
	}
	b.books[book.ID] = book
	return bookFields(book), nil
}

func (b *Backend) resolveCreateMember(p graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("createMember"); err != nil {
		return nil, err
	}
	m := memberRow{
		id:       b.allocID(),
		name:     p.Args["name"].(string),
		email:    p.Args["email"].(string),
		joinedAt: b.now(),
	}
	b.members[m.id] = m
	return memberFields(m), nil
}

func (b *Backend) resolveBorrowBook(p graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("borrowBook"); err != nil {
		return nil, err
	}
	bookID := p.Args["book_id"].(int)
	book, ok := b.books[bookID]
	if !ok {
		return nil, errBookNotFound
	}
	if book.AvailableCopies <= 0 {
		return nil, errNotAvailable
	}
	book.AvailableCopies--
	b.books[bookID] = book

	br := borrowRow{
		id:         b.allocID(),
		memberID:   p.Args["member_id"].(int),
		bookID:     bookID,
		borrowDate: b.now(),
		status:     library.StatusBorrowed,
	}
	b.borrows[br.id] = br
	return borrowFields(br), nil
}

func (b *Backend) resolveReturnBook(p graphql.ResolveParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("returnBook"); err != nil {
		return nil, err
	}
	br, ok := b.borrows[p.Args["borrow_id"].(int)]
	if !ok {
		return nil, errBorrowNotFound
	}
	if br.status == library.StatusReturned {
		return nil, errAlreadyReturned
	}
	now := b.now()
	br.returnDate = &now
	br.status = library.StatusReturned
	b.borrows[br.id] = br

	if book, ok := b.books[br.bookID]; ok {
		book.AvailableCopies++
		b.books[book.ID] = book
	}
	return borrowFields(br), nil
}

func bookFields(book library.Book) map[string]any {
	return map[string]any{
		"id":               book.ID,
		"title":            book.Title,
		"author":           book.Author,
		"published_year":   book.PublishedYear,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
	}
}

// Timestamps are rendered with time.Time.String, the way the production
// backend stringifies its columns.
func memberFields(m memberRow) map[string]any {
	return map[string]any{
		"id":        m.id,
		"name":      m.name,
		"email":     m.email,
		"joined_at": m.joinedAt.String(),
	}
}

func borrowFields(br borrowRow) map[string]any {
	fields := map[string]any{
		"id":          br.id,
		"member_id":   br.memberID,
		"book_id":     br.bookID,
		"borrow_date": br.borrowDate.String(),
		"return_date": nil,
		"status":      string(br.status),
	}
	if br.returnDate != nil {
		fields["return_date"] = br.returnDate.String()
	}
	return fields
}
