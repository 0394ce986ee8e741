// Package memory is the in-process Store adapter.  It enforces the same
// uniqueness constraints a real backend would carry as indexes, so resolver
// behaviour does not depend on which adapter is wired.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dredly/GraphQL-library-backend/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	authors map[string]store.Author // by id
	books   map[string]store.Book   // by id
	users   map[string]store.User   // by id
}

func New() *Store {
	return &Store{
		authors: make(map[string]store.Author),
		books:   make(map[string]store.Book),
		users:   make(map[string]store.User),
	}
}

func (s *Store) AuthorByID(ctx context.Context, id string) (*store.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyAuthor(a), nil
}

func (s *Store) AuthorByName(ctx context.Context, name string) (*store.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.authors {
		if a.Name == name {
			return copyAuthor(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Authors(ctx context.Context) ([]store.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]store.Author, 0, len(s.authors))
	for _, a := range s.authors {
		all = append(all, *copyAuthor(a))
	}
	return all, nil
}

func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authors), nil
}

func (s *Store) InsertAuthor(ctx context.Context, a *store.Author) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.authors {
		if existing.Name == a.Name {
			return fmt.Errorf("%w: author name %q", store.ErrDuplicate, a.Name)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.authors[a.ID] = *copyAuthor(*a)
	return nil
}

func (s *Store) UpdateAuthor(ctx context.Context, a *store.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[a.ID]; !ok {
		return store.ErrNotFound
	}
	s.authors[a.ID] = *copyAuthor(*a)
	return nil
}

func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authors, id)
	return nil
}

func (s *Store) Books(ctx context.Context) ([]store.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]store.Book, 0, len(s.books))
	for _, b := range s.books {
		all = append(all, *copyBook(b))
	}
	return all, nil
}

func (s *Store) CountBooks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.books {
		if b.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertBook(ctx context.Context, b *store.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[b.AuthorID]; !ok {
		return fmt.Errorf("author %q: %w", b.AuthorID, store.ErrNotFound)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.books[b.ID] = *copyBook(*b)
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) InsertUser(ctx context.Context, u *store.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q", store.ErrDuplicate, u.Username)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = *u
	return nil
}

// copyAuthor and copyBook keep callers from aliasing the slices held in the
// maps.

func copyAuthor(a store.Author) *store.Author {
	a.Books = append([]string(nil), a.Books...)
	return &a
}

func copyBook(b store.Book) *store.Book {
	b.Genres = append([]string(nil), b.Genres...)
	return &b
}
