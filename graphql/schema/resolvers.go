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
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/dataloader"
)

// intArg returns the value of an optional Int argument.
func intArg(p graphql.ResolveParams, name string) (int, bool) {
	value, ok := p.Args[name].(int)
	return value, ok
}

func resolveBook(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	id, ok := intArg(p, "id")
	if !ok {
		return nil, nil
	}

	book, err := scope.store.Book(p.Context, id)
	if bookstore.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return book, nil
}

func resolveBooks(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}
	return scope.store.Books(p.Context)
}

func resolveAuthor(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	id, ok := intArg(p, "id")
	if !ok {
		return nil, nil
	}

	author, err := scope.store.Author(p.Context, id)
	if bookstore.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if err := scope.primeAuthors(author); err != nil {
		return nil, err
	}
	return author, nil
}

func resolveAuthors(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	authors, err := scope.store.Authors(p.Context)
	if err != nil {
		return nil, err
	}

	if err := scope.primeAuthors(authors...); err != nil {
		return nil, err
	}
	return authors, nil
}

// relation returns thunk so that sibling relation fields are loaded in one batch. graphql-go
// evaluates thunks only after all top-level fields have resolved, so inside a mutation the value is
// loaded before the next mutation field runs.
func relation(p graphql.ResolveParams, scope *Scope, thunk dataloader.Thunk) (interface{}, error) {
	if p.Info.Operation != nil && p.Info.Operation.GetOperation() == ast.OperationTypeMutation {
		scope.DispatchAll(p.Context)
		return thunk()
	}
	return thunk, nil
}

// resolveBookAuthor loads the authors of all books at one level of the query together.
func resolveBookAuthor(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	book, ok := p.Source.(*bookstore.Book)
	if !ok {
		return nil, nil
	}

	loader, err := scope.authorLoader()
	if err != nil {
		return nil, err
	}
	thunk, err := loader.Load(p.Context, book.AuthorID)
	if err != nil {
		return nil, err
	}
	return relation(p, scope, thunk)
}

func resolveAuthorBooks(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	author, ok := p.Source.(*bookstore.Author)
	if !ok {
		return nil, nil
	}

	loader, err := scope.authorBooksLoader()
	if err != nil {
		return nil, err
	}
	thunk, err := loader.Load(p.Context, author.ID)
	if err != nil {
		return nil, err
	}
	return relation(p, scope, thunk)
}

func resolveAddBook(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	var (
		name     = p.Args["name"].(string)
		authorID = p.Args["authorId"].(int)
	)

	book, err := scope.store.AddBook(p.Context, name, authorID)
	if err != nil {
		return nil, err
	}

	// Later fields of the same request must see the new book in Author.books.
	loader, err := scope.authorBooksLoader()
	if err != nil {
		return nil, err
	}
	loader.Clear(authorID)

	return book, nil
}

func resolveAddAuthor(p graphql.ResolveParams) (interface{}, error) {
	scope, err := mustScope(p.Context)
	if err != nil {
		return nil, err
	}

	author, err := scope.store.AddAuthor(p.Context, p.Args["name"].(string))
	if err != nil {
		return nil, err
	}

	// Replace a null cached by an earlier lookup of the same id.
	loader, err := scope.authorLoader()
	if err != nil {
		return nil, err
	}
	loader.Clear(author.ID)
	if err := loader.Prime(author.ID, author); err != nil {
		return nil, err
	}

	return author, nil
}
