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

// Package bookstore defines the records served by the GraphQL API together with the repository
// interfaces that persist them.
package bookstore

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by repository lookups when no record has the requested id.
var ErrNotFound = errors.New("bookstore: record not found")

// Author is a writer of books.
type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Book is written by the Author whose ID equals AuthorID. The reference is not enforced: a book may
// point at an author that does not exist.
type Book struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	AuthorID int    `json:"authorId"`
}

// AuthorRepository stores authors. Ids are assigned by the repository on insertion and are never
// reused.
type AuthorRepository interface {
	// Author returns the author with the given id or ErrNotFound.
	Author(ctx context.Context, id int) (*Author, error)

	// Authors returns all authors in insertion order.
	Authors(ctx context.Context) ([]*Author, error)

	// AuthorsByIDs returns the authors whose id is in ids. Unknown ids are skipped and the order of
	// the result is unspecified.
	AuthorsByIDs(ctx context.Context, ids []int) ([]*Author, error)

	// AddAuthor appends a new author and returns it with its assigned id.
	AddAuthor(ctx context.Context, name string) (*Author, error)

	// CountAuthors returns the number of stored authors.
	CountAuthors(ctx context.Context) (int, error)
}

// BookRepository stores books.
type BookRepository interface {
	// Book returns the book with the given id or ErrNotFound.
	Book(ctx context.Context, id int) (*Book, error)

	// Books returns all books in insertion order.
	Books(ctx context.Context) ([]*Book, error)

	// BooksByAuthorIDs returns the books written by any of the given authors in insertion order.
	BooksByAuthorIDs(ctx context.Context, authorIDs []int) ([]*Book, error)

	// AddBook appends a new book and returns it with its assigned id. authorID is stored as given.
	AddBook(ctx context.Context, name string, authorID int) (*Book, error)

	// CountBooks returns the number of stored books.
	CountBooks(ctx context.Context) (int, error)
}

// Store is a repository for both collections.
type Store interface {
	AuthorRepository
	BookRepository
	io.Closer
}

// IsNotFound returns true if err (or its cause) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
