package resolver_test

// End-to-end tests of the GraphQL resolution layer: queries, mutation
// consistency and the error taxonomy, run against a real handler over HTTP.
// (The subscription path is covered in subscription_test.go.)

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/dredly/GraphQL-library-backend/internal/auth"
	"github.com/dredly/GraphQL-library-backend/internal/pubsub"
	"github.com/dredly/GraphQL-library-backend/internal/resolver"
	"github.com/dredly/GraphQL-library-backend/internal/store"
	"github.com/dredly/GraphQL-library-backend/internal/store/memory"
)

// JsonObject is what json.Unmarshaler produces when it decodes a JSON object.
// A type alias (note the =) so reflect.DeepEqual works.
type JsonObject = map[string]interface{}

type gqlResult struct {
	Data   interface{}
	Errors []struct{ Message string }
}

type fixture struct {
	server *httptest.Server
	store  *memory.Store
	gate   *auth.Gate
	books  *pubsub.Broker[resolver.Book]
	token  string // a valid bearer token for the seeded user
}

// newFixture wires a full chain (auth middleware + GraphQL handler) around a
// fresh memory store.  With seed=true it loads the standard catalog: two
// authors, three books, one user.
func newFixture(t *testing.T, seed bool) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	gate, err := auth.New("test-secret", "secret", st)
	require.NoError(t, err)
	books := pubsub.NewBroker[resolver.Book]()
	root := resolver.New(st, gate, books)

	handler, err := root.Handler()
	require.NoError(t, err)
	server := httptest.NewServer(gate.Middleware(handler))
	t.Cleanup(server.Close)

	f := &fixture{server: server, store: st, gate: gate, books: books}

	user := &store.User{Username: "mluukkai", FavouriteGenre: "refactoring"}
	require.NoError(t, st.InsertUser(ctx, user))
	f.token, err = gate.IssueToken(user)
	require.NoError(t, err)

	if seed {
		martin := &store.Author{Name: "Robert Martin"}
		fowler := &store.Author{Name: "Martin Fowler"}
		require.NoError(t, st.InsertAuthor(ctx, martin))
		require.NoError(t, st.InsertAuthor(ctx, fowler))
		for _, b := range []*store.Book{
			{Title: "Clean Code", Published: 2008, Genres: []string{"refactoring"}, AuthorID: martin.ID},
			{Title: "Agile software development", Published: 2002, Genres: []string{"agile", "design"}, AuthorID: martin.ID},
			{Title: "Refactoring", Published: 2018, Genres: []string{"refactoring", "design"}, AuthorID: fowler.ID},
		} {
			require.NoError(t, st.InsertBook(ctx, b))
		}
	}
	return f
}

// post sends a GraphQL request; token may be empty for anonymous calls.
func (f *fixture) post(t *testing.T, token, query string) gqlResult {
	t.Helper()
	body := `{ "query": "` + query + `" }`
	req, err := http.NewRequest(http.MethodPost, f.server.URL, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result gqlResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

// titles extracts and sorts the title field of a list result, since the
// store does not promise an ordering.
func titles(t *testing.T, result gqlResult, listField string) []string {
	t.Helper()
	data, ok := result.Data.(JsonObject)
	require.True(t, ok, "expected data object, got %v (errors: %v)", result.Data, result.Errors)
	list, ok := data[listField].([]interface{})
	require.True(t, ok, "expected %s to be a list, got %v", listField, data[listField])
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.(JsonObject)["title"].(string))
	}
	sort.Strings(out)
	return out
}

func TestCounts(t *testing.T) {
	f := newFixture(t, true)
	result := f.post(t, "", `{ bookCount authorCount }`)
	Assertf(t, result.Errors == nil, "counts: expected no error, got %v", result.Errors)
	expected := JsonObject{"bookCount": 3.0, "authorCount": 2.0}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "counts: expected %v, got %v", expected, result.Data)
}

func TestAllBooks(t *testing.T) {
	tests := map[string]struct {
		query    string
		expected []string // sorted titles
	}{
		"no_filter": {
			query:    `{ allBooks { title } }`,
			expected: []string{"Agile software development", "Clean Code", "Refactoring"},
		},
		"by_author": {
			query:    `{ allBooks(author: \"Robert Martin\") { title } }`,
			expected: []string{"Agile software development", "Clean Code"},
		},
		"by_genre": {
			query:    `{ allBooks(genre: \"refactoring\") { title } }`,
			expected: []string{"Clean Code", "Refactoring"},
		},
		"author_and_genre": {
			query:    `{ allBooks(author: \"Robert Martin\", genre: \"refactoring\") { title } }`,
			expected: []string{"Clean Code"},
		},
		"unknown_author": {
			query:    `{ allBooks(author: \"Nobody\") { title } }`,
			expected: []string{},
		},
		"unknown_genre": {
			query:    `{ allBooks(genre: \"horror\") { title } }`,
			expected: []string{},
		},
		"disjoint_and": {
			// each filter matches on its own but their AND is empty
			query:    `{ allBooks(author: \"Martin Fowler\", genre: \"agile\") { title } }`,
			expected: []string{},
		},
	}
	f := newFixture(t, true)
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := f.post(t, "", test.query)
			Assertf(t, result.Errors == nil, "%-16s: expected no error, got %v", name, result.Errors)
			got := titles(t, result, "allBooks")
			Assertf(t, reflect.DeepEqual(got, test.expected), "%-16s: expected %v, got %v", name, test.expected, got)
		})
	}
}

func TestAllBooksResolvesAuthors(t *testing.T) {
	f := newFixture(t, true)
	result := f.post(t, "", `{ allBooks(genre: \"agile\") { title author { name born bookCount } } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	expected := JsonObject{
		"allBooks": []interface{}{
			JsonObject{
				"title":  "Agile software development",
				"author": JsonObject{"name": "Robert Martin", "born": nil, "bookCount": 2.0},
			},
		},
	}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)
}

func TestAllAuthorsBookCount(t *testing.T) {
	f := newFixture(t, true)
	result := f.post(t, "", `{ allAuthors { name bookCount } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)

	counts := map[string]float64{}
	for _, item := range result.Data.(JsonObject)["allAuthors"].([]interface{}) {
		a := item.(JsonObject)
		counts[a["name"].(string)] = a["bookCount"].(float64)
	}
	expected := map[string]float64{"Robert Martin": 2, "Martin Fowler": 1}
	Assertf(t, reflect.DeepEqual(counts, expected), "expected %v, got %v", expected, counts)
}

func TestAllGenres(t *testing.T) {
	f := newFixture(t, true)
	result := f.post(t, "", `{ allGenres }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)

	var got []string
	for _, g := range result.Data.(JsonObject)["allGenres"].([]interface{}) {
		got = append(got, g.(string))
	}
	sort.Strings(got)
	expected := []string{"agile", "design", "refactoring"}
	Assertf(t, reflect.DeepEqual(got, expected), "expected %v, got %v", expected, got)
}

func TestAllGenresEmptyCatalog(t *testing.T) {
	f := newFixture(t, false)
	result := f.post(t, "", `{ allGenres }`)
	Assertf(t, result.Errors == nil, "expected no error on empty catalog, got %v", result.Errors)
	expected := JsonObject{"allGenres": []interface{}{}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)
}

func TestMe(t *testing.T) {
	f := newFixture(t, false)

	result := f.post(t, "", `{ me { username } }`)
	Assertf(t, result.Errors == nil, "anonymous me: expected no error, got %v", result.Errors)
	expected := JsonObject{"me": nil}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "anonymous me: expected %v, got %v", expected, result.Data)

	result = f.post(t, f.token, `{ me { username favouriteGenre } }`)
	expected = JsonObject{"me": JsonObject{"username": "mluukkai", "favouriteGenre": "refactoring"}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "me: expected %v, got %v", expected, result.Data)
}

func TestAddBookRequiresPrincipal(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	result := f.post(t, "", `mutation { addBook(title: \"Demons\", author: \"Fyodor Dostoevsky\", published: 1872, genres: [\"classic\"]) { title } }`)
	Assertf(t, len(result.Errors) == 1, "expected one error, got %v", result.Errors)
	Assertf(t, strings.Contains(result.Errors[0].Message, "not authenticated"),
		"expected authentication error, got %q", result.Errors[0].Message)

	// nothing may have been created
	nAuthors, err := f.store.CountAuthors(ctx)
	require.NoError(t, err)
	nBooks, err := f.store.CountBooks(ctx)
	require.NoError(t, err)
	Assertf(t, nAuthors == 0 && nBooks == 0, "expected untouched store, got %d authors, %d books", nAuthors, nBooks)
}

func TestAddBookNewAuthor(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	result := f.post(t, f.token, `mutation { addBook(title: \"Demons\", author: \"Fyodor Dostoevsky\", published: 1872, genres: [\"classic\"]) { title published genres author { name born bookCount } } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	expected := JsonObject{
		"addBook": JsonObject{
			"title":     "Demons",
			"published": 1872.0,
			"genres":    []interface{}{"classic"},
			"author":    JsonObject{"name": "Fyodor Dostoevsky", "born": nil, "bookCount": 1.0},
		},
	}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)

	// exactly one author and one book, linked up
	author, err := f.store.AuthorByName(ctx, "Fyodor Dostoevsky")
	require.NoError(t, err)
	Assertf(t, author.Born == nil, "new author should have no birth year, got %v", author.Born)
	books, err := f.store.Books(ctx)
	require.NoError(t, err)
	Assertf(t, len(books) == 1 && books[0].AuthorID == author.ID,
		"expected one book referencing %q, got %v", author.ID, books)
	Assertf(t, len(author.Books) == 1 && author.Books[0] == books[0].ID,
		"expected back-reference to %q, got %v", books[0].ID, author.Books)
}

func TestAddBookExistingAuthor(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	before, err := f.store.AuthorByName(ctx, "Martin Fowler")
	require.NoError(t, err)

	result := f.post(t, f.token, `mutation { addBook(title: \"Patterns of Enterprise Application Architecture\", author: \"Martin Fowler\", published: 2002, genres: [\"design\"]) { author { name bookCount } } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	expected := JsonObject{
		"addBook": JsonObject{"author": JsonObject{"name": "Martin Fowler", "bookCount": 2.0}},
	}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)

	after, err := f.store.AuthorByName(ctx, "Martin Fowler")
	require.NoError(t, err)
	Assertf(t, after.ID == before.ID, "author must be reused, id changed %q -> %q", before.ID, after.ID)
	Assertf(t, len(after.Books) == len(before.Books)+1,
		"expected back-reference appended, had %d now %d", len(before.Books), len(after.Books))

	n, err := f.store.CountAuthors(ctx)
	require.NoError(t, err)
	Assertf(t, n == 2, "no duplicate author may be created, got %d", n)
}

func TestAddBookValidationCompensatesAuthor(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// title is too short: the freshly created author must be removed again
	result := f.post(t, f.token, `mutation { addBook(title: \"X\", author: \"Fyodor Dostoevsky\", published: 1872, genres: [\"classic\"]) { title } }`)
	Assertf(t, len(result.Errors) == 1, "expected one error, got %v", result.Errors)
	Assertf(t, strings.Contains(result.Errors[0].Message, "invalid args:"),
		"expected args in message, got %q", result.Errors[0].Message)
	Assertf(t, strings.Contains(result.Errors[0].Message, "Fyodor Dostoevsky"),
		"expected offending args in message, got %q", result.Errors[0].Message)

	n, err := f.store.CountAuthors(ctx)
	require.NoError(t, err)
	Assertf(t, n == 0, "half-created author must be compensated away, got %d authors", n)
}

func TestEditAuthor(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	result := f.post(t, f.token, `mutation { editAuthor(name: \"Martin Fowler\", setBornTo: 1963) { name born } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	expected := JsonObject{"editAuthor": JsonObject{"name": "Martin Fowler", "born": 1963.0}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)

	author, err := f.store.AuthorByName(ctx, "Martin Fowler")
	require.NoError(t, err)
	Assertf(t, author.Born != nil && *author.Born == 1963, "birth year not persisted: %v", author.Born)
}

func TestEditAuthorNotFound(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	result := f.post(t, f.token, `mutation { editAuthor(name: \"Nobody\", setBornTo: 1900) { name } }`)
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "Author not found",
		"expected \"Author not found\", got %v", result.Errors)

	// existing authors are untouched
	authors, err := f.store.Authors(ctx)
	require.NoError(t, err)
	for _, a := range authors {
		Assertf(t, a.Born == nil, "author %q unexpectedly changed: born=%v", a.Name, a.Born)
	}
}

func TestEditAuthorRequiresPrincipal(t *testing.T) {
	f := newFixture(t, true)
	result := f.post(t, "", `mutation { editAuthor(name: \"Martin Fowler\", setBornTo: 1963) { name } }`)
	Assertf(t, len(result.Errors) == 1 && strings.Contains(result.Errors[0].Message, "not authenticated"),
		"expected authentication error, got %v", result.Errors)
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t, false)

	result := f.post(t, "", `mutation { createUser(username: \"reader\", favouriteGenre: \"design\") { username favouriteGenre } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	expected := JsonObject{"createUser": JsonObject{"username": "reader", "favouriteGenre": "design"}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)

	// duplicate username carries the offending arguments
	result = f.post(t, "", `mutation { createUser(username: \"reader\", favouriteGenre: \"agile\") { username } }`)
	Assertf(t, len(result.Errors) == 1, "expected one error, got %v", result.Errors)
	Assertf(t, strings.Contains(result.Errors[0].Message, "invalid args:") &&
		strings.Contains(result.Errors[0].Message, "reader"),
		"expected duplicate error with args, got %q", result.Errors[0].Message)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)

	result := f.post(t, "", `mutation { login(username: \"mluukkai\", password: \"wrong\") { value } }`)
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "Wrong credentials",
		"wrong password: expected \"Wrong credentials\", got %v", result.Errors)

	result = f.post(t, "", `mutation { login(username: \"ghost\", password: \"secret\") { value } }`)
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "Wrong credentials",
		"unknown user: expected \"Wrong credentials\", got %v", result.Errors)

	result = f.post(t, "", `mutation { login(username: \"mluukkai\", password: \"secret\") { value } }`)
	Assertf(t, result.Errors == nil, "expected no error, got %v", result.Errors)
	value := result.Data.(JsonObject)["login"].(JsonObject)["value"].(string)

	// the token verifies and decodes back to the user
	token, err := jwt.Parse(value, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	Assertf(t, claims["username"] == "mluukkai", "expected username claim, got %v", claims)

	// and it works as a bearer credential
	result = f.post(t, value, `{ me { username } }`)
	expected := JsonObject{"me": JsonObject{"username": "mluukkai"}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "expected %v, got %v", expected, result.Data)
}

// Assertf displays a tick or cross depending on the success of the check,
// with a formatted message for failures.
func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "✓" // tick
		failed  = "XXXXX"
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%-6s"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%-6s"+format, append([]interface{}{succeed}, args...)...)
	}
}
