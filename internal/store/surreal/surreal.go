// Package surreal is the SurrealDB Store adapter.  Records live in the
// author, book and user tables; uniqueness of author names and usernames is
// backed by unique indexes which DefineSchema applies.
package surreal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dredly/GraphQL-library-backend/internal/store"
)

type Store struct {
	db  *surrealdb.DB
	log zerolog.Logger
}

func New(db *surrealdb.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// DefineSchema applies the unique indexes the mutation protocol relies on as
// its race-closing backstop.  Safe to run repeatedly.
func (s *Store) DefineSchema(ctx context.Context) error {
	_, err := s.db.Query(`
		DEFINE TABLE author SCHEMALESS;
		DEFINE INDEX author_name ON TABLE author COLUMNS name UNIQUE;
		DEFINE TABLE user SCHEMALESS;
		DEFINE INDEX user_username ON TABLE user COLUMNS username UNIQUE;
	`, nil)
	return err
}

func (s *Store) AuthorByID(ctx context.Context, id string) (*store.Author, error) {
	var a store.Author
	if err := s.selectOne(id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) AuthorByName(ctx context.Context, name string) (*store.Author, error) {
	s.log.Debug().Str("name", name).Msg("find author")
	var authors []store.Author
	if err := s.query("SELECT * FROM author WHERE name = $name", map[string]interface{}{"name": name}, &authors); err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, store.ErrNotFound
	}
	return &authors[0], nil
}

func (s *Store) Authors(ctx context.Context) ([]store.Author, error) {
	s.log.Debug().Msg("find authors")
	var authors []store.Author
	if err := s.query("SELECT * FROM author", nil, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	return s.count("SELECT count() AS count FROM author GROUP BY ALL", nil)
}

func (s *Store) InsertAuthor(ctx context.Context, a *store.Author) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Books == nil {
		a.Books = []string{}
	}
	data, err := s.db.Create("author", a)
	if err != nil {
		return wrapDuplicate(err)
	}
	var created []store.Author
	if err := surrealdb.Unmarshal(data, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("create author: empty result")
	}
	a.ID = created[0].ID
	return nil
}

func (s *Store) UpdateAuthor(ctx context.Context, a *store.Author) error {
	_, err := s.db.Change(a.ID, a)
	return wrapDuplicate(err)
}

func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	_, err := s.db.Delete(id)
	return err
}

func (s *Store) Books(ctx context.Context) ([]store.Book, error) {
	s.log.Debug().Msg("find books")
	var books []store.Book
	if err := s.query("SELECT * FROM book", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.count("SELECT count() AS count FROM book GROUP BY ALL", nil)
}

func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	return s.count(
		"SELECT count() AS count FROM book WHERE author = $author GROUP BY ALL",
		map[string]interface{}{"author": authorID},
	)
}

func (s *Store) InsertBook(ctx context.Context, b *store.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := s.db.Create("book", b)
	if err != nil {
		return wrapDuplicate(err)
	}
	var created []store.Book
	if err := surrealdb.Unmarshal(data, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("create book: empty result")
	}
	b.ID = created[0].ID
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	var u store.User
	if err := s.selectOne(id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*store.User, error) {
	var users []store.User
	if err := s.query("SELECT * FROM user WHERE username = $username", map[string]interface{}{"username": username}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return &users[0], nil
}

func (s *Store) InsertUser(ctx context.Context, u *store.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	data, err := s.db.Create("user", u)
	if err != nil {
		return wrapDuplicate(err)
	}
	var created []store.User
	if err := surrealdb.Unmarshal(data, &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return fmt.Errorf("create user: empty result")
	}
	u.ID = created[0].ID
	return nil
}

func (s *Store) query(sql string, vars map[string]interface{}, v interface{}) error {
	raw, err := s.db.Query(sql, vars)
	if err != nil {
		return err
	}
	if _, err := surrealdb.UnmarshalRaw(raw, v); err != nil {
		return err
	}
	return nil
}

func (s *Store) selectOne(id string, v interface{}) error {
	data, err := s.db.Select(id)
	if err != nil {
		// the driver reports a missing record as ErrNoRow
		if errors.Is(err, surrealdb.ErrNoRow) {
			return store.ErrNotFound
		}
		return err
	}
	return surrealdb.Unmarshal(data, v)
}

func (s *Store) count(sql string, vars map[string]interface{}) (int, error) {
	var rows []struct {
		Count int `json:"count"`
	}
	if err := s.query(sql, vars, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// wrapDuplicate maps the database's unique-index violation onto
// store.ErrDuplicate so resolvers can treat both adapters alike.
func wrapDuplicate(err error) error {
	if err != nil && strings.Contains(err.Error(), "already contains") {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
