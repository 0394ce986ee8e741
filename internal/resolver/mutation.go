package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/dredly/GraphQL-library-backend/internal/auth"
	"github.com/dredly/GraphQL-library-backend/internal/store"
)

// addBook creates a book, and its author first if the name has not been seen
// before.  The write is two-phase: author insert, book insert, then the
// author's back-reference update.  If the book insert fails after a fresh
// author insert the author is deleted again, so a failed addBook commits
// nothing.  Two concurrent calls for the same unseen author can still race;
// the store's unique index on author name is the backstop, and the loser
// surfaces the duplicate as a UserInput error.
func (r *Root) addBook(ctx context.Context, title, authorName string, published int, genres []string) (*Book, error) {
	if auth.FromContext(ctx) == nil {
		return nil, notAuthenticated()
	}
	args := map[string]interface{}{"title": title, "author": authorName, "published": published, "genres": genres}

	author, err := r.store.AuthorByName(ctx, authorName)
	createdAuthor := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		author = &store.Author{Name: authorName} // born stays null
		if err := r.store.InsertAuthor(ctx, author); err != nil {
			return nil, userInput(err, args)
		}
		createdAuthor = true
	case err != nil:
		return nil, err
	}

	book := &store.Book{Title: title, Published: published, Genres: genres, AuthorID: author.ID}
	if err := r.store.InsertBook(ctx, book); err != nil {
		if createdAuthor {
			if derr := r.store.DeleteAuthor(ctx, author.ID); derr != nil {
				return nil, userInput(fmt.Errorf("%v (removing half-created author failed: %v)", err, derr), args)
			}
		}
		return nil, userInput(err, args)
	}

	author.Books = append(author.Books, book.ID)
	if err := r.store.UpdateAuthor(ctx, author); err != nil {
		return nil, userInput(err, args)
	}

	added := r.viewBook(*book, *author)
	r.books.Publish(added)
	return &added, nil
}

func (r *Root) editAuthor(ctx context.Context, name string, setBornTo int) (*Author, error) {
	if auth.FromContext(ctx) == nil {
		return nil, notAuthenticated()
	}
	author, err := r.store.AuthorByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &UserInputError{Reason: "Author not found"}
	}
	if err != nil {
		return nil, err
	}

	born := setBornTo // overwritten unconditionally, no range validation
	author.Born = &born
	if err := r.store.UpdateAuthor(ctx, author); err != nil {
		return nil, userInput(err, map[string]interface{}{"name": name, "setBornTo": setBornTo})
	}
	view := r.viewAuthor(*author)
	return &view, nil
}

func (r *Root) createUser(ctx context.Context, username, favouriteGenre string) (*User, error) {
	u := &store.User{Username: username, FavouriteGenre: favouriteGenre}
	if err := r.store.InsertUser(ctx, u); err != nil {
		return nil, userInput(err, map[string]interface{}{"username": username, "favouriteGenre": favouriteGenre})
	}
	return viewUser(u), nil
}

func (r *Root) login(ctx context.Context, username, password string) (*Token, error) {
	u, err := r.store.UserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !r.gate.CheckPassword(password)) {
		return nil, &UserInputError{Reason: "Wrong credentials"}
	}
	if err != nil {
		return nil, err
	}
	value, err := r.gate.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &Token{Value: value}, nil
}
