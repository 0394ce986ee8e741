// Command library-server serves the catalog's GraphQL API: queries and
// mutations over HTTP POST, the bookAdded subscription over websocket.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dredly/GraphQL-library-backend/internal/auth"
	"github.com/dredly/GraphQL-library-backend/internal/config"
	"github.com/dredly/GraphQL-library-backend/internal/pubsub"
	"github.com/dredly/GraphQL-library-backend/internal/resolver"
	"github.com/dredly/GraphQL-library-backend/internal/store"
	"github.com/dredly/GraphQL-library-backend/internal/store/memory"
	"github.com/dredly/GraphQL-library-backend/internal/store/surreal"
)

const (
	path           = "/graphql"
	requestTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("opening store")
	}

	gate, err := auth.New(cfg.JWTSecret, cfg.PlaceholderPassword, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("building auth gate")
	}

	books := pubsub.NewBroker[resolver.Book]()
	root := resolver.New(st, gate, books)

	handler, err := root.Handler()
	if err != nil {
		logger.Fatal().Err(err).Msg("building GraphQL handler")
	}
	handler = withTimeout(handler, requestTimeout)
	handler = gate.Middleware(handler)
	http.Handle(path, handler)

	logger.Info().Str("addr", cfg.HTTPAddr).Str("path", path).Msg("starting server")
	if err := http.ListenAndServe(cfg.HTTPAddr, nil); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func openStore(cfg config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSurreal:
		db, err := surrealdb.New(cfg.SurrealURL)
		if err != nil {
			return nil, err
		}
		if _, err := db.Signin(map[string]interface{}{"user": cfg.SurrealUser, "pass": cfg.SurrealPass}); err != nil {
			return nil, err
		}
		if _, err := db.Use(cfg.SurrealNS, cfg.SurrealDB); err != nil {
			return nil, err
		}
		st := surreal.New(db, logger)
		if err := st.DefineSchema(context.Background()); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return memory.New(), nil
	}
}

// withTimeout bounds ordinary requests but leaves websocket upgrades alone:
// http.TimeoutHandler cannot hijack, and subscriptions are long-lived by
// nature.
func withTimeout(h http.Handler, d time.Duration) http.Handler {
	timed := http.TimeoutHandler(h, d, `{"errors":[{"message":"timeout"}]}`)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r)
			return
		}
		timed.ServeHTTP(w, r)
	})
}
