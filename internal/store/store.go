// Package store defines the catalog's persisted records (Author, Book, User)
// and the contract their backends implement.  Adapters live in the memory and
// surreal sub-packages.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Minimum field lengths enforced on insert.  These match the document schema
// the catalog was originally populated under.
const (
	MinTitleLen    = 2
	MinNameLen     = 4
	MinUsernameLen = 3
)

var (
	// ErrNotFound is returned by the find operations when no record matches.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned by inserts that violate a uniqueness
	// constraint (author name, username).
	ErrDuplicate = errors.New("duplicate")
)

// ValidationError reports a record field that failed validation on insert.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type (
	// Author is the "one" side of the author/book relation.  Books holds
	// back-references (book ids) but is never used to answer bookCount -
	// that is always a live count against the book collection.
	Author struct {
		ID    string   `json:"id,omitempty"`
		Name  string   `json:"name"`
		Born  *int     `json:"born,omitempty"`
		Books []string `json:"books"`
	}

	// Book references its owning Author by id.
	Book struct {
		ID        string   `json:"id,omitempty"`
		Title     string   `json:"title"`
		Published int      `json:"published"`
		Genres    []string `json:"genres"`
		AuthorID  string   `json:"author"`
	}

	// User is the principal resolved from a bearer token.
	User struct {
		ID             string `json:"id,omitempty"`
		Username       string `json:"username"`
		FavouriteGenre string `json:"favouriteGenre"`
	}
)

// Validate checks the fields that inserts must reject.
func (a *Author) Validate() error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(a.Name) < MinNameLen {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", MinNameLen)}
	}
	return nil
}

func (b *Book) Validate() error {
	if b.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if len(b.Title) < MinTitleLen {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at least %d characters", MinTitleLen)}
	}
	if len(b.Genres) == 0 {
		return &ValidationError{Field: "genres", Reason: "must not be empty"}
	}
	if b.AuthorID == "" {
		return &ValidationError{Field: "author", Reason: "must reference an author"}
	}
	return nil
}

func (u *User) Validate() error {
	if len(u.Username) < MinUsernameLen {
		return &ValidationError{Field: "username", Reason: fmt.Sprintf("must be at least %d characters", MinUsernameLen)}
	}
	return nil
}

// Store is the persistence contract the resolvers operate on.  Inserts
// validate the record, assign its identity (unless the caller set one) and
// report ErrDuplicate on uniqueness violations.  DeleteAuthor exists only so
// addBook can compensate a half-done write; nothing in the API deletes.
type Store interface {
	AuthorByID(ctx context.Context, id string) (*Author, error)
	AuthorByName(ctx context.Context, name string) (*Author, error)
	Authors(ctx context.Context) ([]Author, error)
	CountAuthors(ctx context.Context) (int, error)
	InsertAuthor(ctx context.Context, a *Author) error
	UpdateAuthor(ctx context.Context, a *Author) error
	DeleteAuthor(ctx context.Context, id string) error

	Books(ctx context.Context) ([]Book, error)
	CountBooks(ctx context.Context) (int, error)
	CountBooksByAuthor(ctx context.Context, authorID string) (int, error)
	InsertBook(ctx context.Context, b *Book) error

	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	InsertUser(ctx context.Context, u *User) error
}
