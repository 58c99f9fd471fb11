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

package schema

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/dataloader"
)

var errMissingScope = errors.New("schema: no request scope in resolver context")

// Scope holds the per-request state that resolvers read from their context: the repository and the
// data loaders that batch relation lookups. A Scope must not be shared between requests because the
// loaders cache what they load.
type Scope struct {
	store   bookstore.Store
	loaders *dataloader.Manager
}

// NewScope creates a Scope for one request against store.
func NewScope(store bookstore.Store) *Scope {
	return &Scope{
		store:   store,
		loaders: &dataloader.Manager{},
	}
}

// DispatchAll dispatches every pending relation lookup.
func (scope *Scope) DispatchAll(ctx context.Context) {
	scope.loaders.DispatchAll(ctx)
}

type scopeContextKey struct{}

// WithScope returns a copy of ctx that carries scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFrom returns the Scope stored in ctx by WithScope.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

func mustScope(ctx context.Context) (*Scope, error) {
	scope, ok := ScopeFrom(ctx)
	if !ok || scope.store == nil {
		return nil, errMissingScope
	}
	return scope, nil
}
