package resolver

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/dredly/GraphQL-library-backend/internal/auth"
	"github.com/dredly/GraphQL-library-backend/internal/store"
)

func (r *Root) bookCount(ctx context.Context) (int, error) {
	return r.store.CountBooks(ctx)
}

func (r *Root) authorCount(ctx context.Context) (int, error) {
	return r.store.CountAuthors(ctx)
}

// allBooks loads every book with its author resolved, then narrows by the
// genre and author filters.  The filters AND-compose; an empty string means
// the filter was not supplied.  No match is an empty list, never an error.
func (r *Root) allBooks(ctx context.Context, authorName, genre string) ([]Book, error) {
	books, err := r.resolvedBooks(ctx)
	if err != nil {
		return nil, err
	}
	if genre != "" {
		books = lo.Filter(books, func(b Book, _ int) bool {
			return lo.Contains(b.Genres, genre)
		})
	}
	if authorName != "" {
		books = lo.Filter(books, func(b Book, _ int) bool {
			return b.Author.Name == authorName
		})
	}
	return books, nil
}

func (r *Root) allAuthors(ctx context.Context) ([]Author, error) {
	records, err := r.store.Authors(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(a store.Author, _ int) Author {
		return r.viewAuthor(a)
	}), nil
}

// allGenres is the deduplicated union of every book's genres.  With no books
// it is an empty list.
func (r *Root) allGenres(ctx context.Context) ([]string, error) {
	records, err := r.store.Books(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.FlatMap(records, func(b store.Book, _ int) []string {
		return b.Genres
	})), nil
}

func (r *Root) me(ctx context.Context) (*User, error) {
	u := auth.FromContext(ctx)
	if u == nil {
		return nil, nil
	}
	return viewUser(u), nil
}

// resolvedBooks returns all books with authors attached, failing loudly if a
// book's author reference does not resolve (referential integrity is a store
// invariant, not something to paper over).
func (r *Root) resolvedBooks(ctx context.Context) ([]Book, error) {
	records, err := r.store.Books(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := r.store.Authors(ctx)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(authors, func(a store.Author) string { return a.ID })

	books := make([]Book, 0, len(records))
	for _, rec := range records {
		a, ok := byID[rec.AuthorID]
		if !ok {
			return nil, fmt.Errorf("book %q references missing author %q", rec.ID, rec.AuthorID)
		}
		books = append(books, r.viewBook(rec, a))
	}
	return books, nil
}
