/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package server assembles the repository, the GraphQL schema and the HTTP transport into a
// runnable GraphQL service.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/bookstore/memory"
	"github.com/gabedeko/graphql-demo/bookstore/sqlstore"
	"github.com/gabedeko/graphql-demo/config"
	"github.com/gabedeko/graphql-demo/graphql/handler"
	"github.com/gabedeko/graphql-demo/graphql/schema"
)

// Path is where the GraphQL endpoint is mounted.
const Path = "/graphql"

// Server serves the bookstore GraphQL API.
type Server struct {
	config  *config.Config
	logger  hclog.Logger
	store   bookstore.Store
	handler http.Handler
}

// New opens the store described by cfg, seeds it and builds the HTTP handler. The caller must Close
// the returned Server.
func New(ctx context.Context, cfg *config.Config, logger hclog.Logger) (*Server, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	store, err := openStore(ctx, &cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	server := &Server{
		config: cfg,
		logger: logger.Named("server"),
		store:  store,
	}

	if err := server.init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return server, nil
}

func (server *Server) init(ctx context.Context) error {
	cfg := server.config

	if cfg.Store.Seed {
		seed := cfg.SeedData()
		loaded, err := bookstore.Load(ctx, server.store, seed)
		if err != nil {
			return err
		}
		if loaded {
			server.logger.Info("seeded store", "authors", seed.NumAuthors(), "books", seed.NumBooks())
		} else {
			server.logger.Info("store is not empty, skip seeding")
		}
	}

	s, err := schema.New()
	if err != nil {
		return errors.Wrap(err, "build schema")
	}

	var cache handler.OperationCache = handler.NopOperationCache{}
	if cfg.Server.OperationCacheSize > 0 {
		cache, err = handler.NewLRUOperationCache(cfg.Server.OperationCacheSize)
		if err != nil {
			return errors.Wrap(err, "create operation cache")
		}
	}

	graphqlHandler, err := handler.New(&s,
		handler.MaxBodySize(uint(cfg.Server.MaxBodySize)),
		handler.GraphiQL(cfg.Server.GraphiQL),
		handler.Pretty(cfg.Server.Pretty),
		handler.OverrideOperationCache(cache),
		handler.Logger(server.logger.Named("handler")),
		handler.Middlewares(scopeMiddleware(server.store)),
	)
	if err != nil {
		return errors.Wrap(err, "create GraphQL handler")
	}

	mux := http.NewServeMux()
	mux.Handle(Path, graphqlHandler)
	server.handler = requestLogger(server.logger, mux)

	return nil
}

// Handler returns the HTTP handler that serves all requests.
func (server *Server) Handler() http.Handler {
	return server.handler
}

// Store returns the repository the server reads from and writes to.
func (server *Server) Store() bookstore.Store {
	return server.store
}

// Run listens on the configured address and serves until ctx is cancelled.
func (server *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", server.config.Server.Address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", server.config.Server.Address)
	}
	return server.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled. In-flight requests are given
// ShutdownTimeout to complete.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           server.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog: server.logger.StandardLogger(&hclog.StandardLoggerOptions{
			InferLevels: true,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	server.logger.Info("listening", "address", listener.Addr().String(), "path", Path)

	select {
	case err := <-errCh:
		// Serve never returns nil.
		return errors.Wrap(err, "serve")

	case <-ctx.Done():
	}

	timeout := server.config.Server.ShutdownTimeout
	server.logger.Info("shutting down", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// Close releases the store.
func (server *Server) Close() error {
	return server.store.Close()
}

func openStore(ctx context.Context, cfg *config.StoreConfig, logger hclog.Logger) (bookstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Info("using in-memory store")
		return memory.New(), nil

	case config.DriverSQLite, config.DriverPostgres:
		store, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("using SQL store", "driver", store.Driver())
		return store, nil

	default:
		return nil, errors.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
