// Package resolver implements the catalog's GraphQL resolution layer: typed
// queries over authors and books, the mutation consistency protocol, and the
// bookAdded subscription.  The structs below double as the schema declaration
// (eggql derives the GraphQL types from them).
package resolver

import (
	"context"
	"net/http"

	"github.com/andrewwphillips/eggql"

	"github.com/dredly/GraphQL-library-backend/internal/auth"
	"github.com/dredly/GraphQL-library-backend/internal/pubsub"
	"github.com/dredly/GraphQL-library-backend/internal/store"
)

type (
	// Author as returned by the API.  BookCount is a field resolver that
	// live-counts books referencing this author - the count is never stored,
	// so it cannot drift from the relation it is derived from.
	Author struct {
		ID        eggql.ID `egg:"id"`
		Name      string
		Born      *int
		BookCount func(ctx context.Context) (int, error)
	}

	// Book with its owning Author fully resolved.
	Book struct {
		ID        eggql.ID `egg:"id"`
		Title     string
		Published int
		Genres    []string
		Author    Author
	}

	User struct {
		ID             eggql.ID `egg:"id"`
		Username       string
		FavouriteGenre string
	}

	// Token wraps a signed credential, as login returns it.
	Token struct {
		Value string
	}

	Query struct {
		BookCount   func(ctx context.Context) (int, error)
		AuthorCount func(ctx context.Context) (int, error)
		AllBooks    func(ctx context.Context, author, genre string) ([]Book, error) `egg:"allBooks(author=\"\",genre=\"\")"`
		AllAuthors  func(ctx context.Context) ([]Author, error)
		AllGenres   func(ctx context.Context) ([]string, error)
		Me          func(ctx context.Context) (*User, error)
	}

	Mutation struct {
		AddBook    func(ctx context.Context, title, author string, published int, genres []string) (*Book, error) `egg:"addBook(title,author,published,genres)"`
		EditAuthor func(ctx context.Context, name string, setBornTo int) (*Author, error)                         `egg:"editAuthor(name,setBornTo)"`
		CreateUser func(ctx context.Context, username, favouriteGenre string) (*User, error)                      `egg:"createUser(username,favouriteGenre)"`
		Login      func(ctx context.Context, username, password string) (*Token, error)                           `egg:"login(username,password)"`
	}

	Subscription struct {
		BookAdded func(ctx context.Context) <-chan Book
	}
)

// Root holds the resolvers' collaborators.  The broker is injected, never
// package state, so each serving process (and each test) gets its own.
type Root struct {
	store store.Store
	gate  *auth.Gate
	books *pubsub.Broker[Book]
}

func New(st store.Store, gate *auth.Gate, books *pubsub.Broker[Book]) *Root {
	return &Root{store: st, gate: gate, books: books}
}

func (r *Root) Query() Query {
	return Query{
		BookCount:   r.bookCount,
		AuthorCount: r.authorCount,
		AllBooks:    r.allBooks,
		AllAuthors:  r.allAuthors,
		AllGenres:   r.allGenres,
		Me:          r.me,
	}
}

func (r *Root) Mutation() Mutation {
	return Mutation{
		AddBook:    r.addBook,
		EditAuthor: r.editAuthor,
		CreateUser: r.createUser,
		Login:      r.login,
	}
}

func (r *Root) Subscription() Subscription {
	return Subscription{BookAdded: r.bookAdded}
}

// Handler builds the GraphQL endpoint for the three root types.
func (r *Root) Handler() (http.Handler, error) {
	g := eggql.New(r.Query(), r.Mutation(), r.Subscription())
	return g.GetHandler()
}

func (r *Root) viewAuthor(a store.Author) Author {
	id := a.ID
	return Author{
		ID:   eggql.ID(a.ID),
		Name: a.Name,
		Born: a.Born,
		BookCount: func(ctx context.Context) (int, error) {
			return r.store.CountBooksByAuthor(ctx, id)
		},
	}
}

func (r *Root) viewBook(b store.Book, a store.Author) Book {
	return Book{
		ID:        eggql.ID(b.ID),
		Title:     b.Title,
		Published: b.Published,
		Genres:    b.Genres,
		Author:    r.viewAuthor(a),
	}
}

func viewUser(u *store.User) *User {
	return &User{
		ID:             eggql.ID(u.ID),
		Username:       u.Username,
		FavouriteGenre: u.FavouriteGenre,
	}
}
