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

// Package memory provides a bookstore.Store that keeps records in process memory. Its contents are
// lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/gabedeko/graphql-demo/bookstore"
)

// Store implements bookstore.Store with slices guarded by a RWMutex. Ids come from per-collection
// counters that only grow.
type Store struct {
	mutex sync.RWMutex

	authors []bookstore.Author
	books   []bookstore.Book

	// Last assigned ids
	lastAuthorID int
	lastBookID   int
}

var _ bookstore.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Author implements bookstore.AuthorRepository.
func (store *Store) Author(ctx context.Context, id int) (*bookstore.Author, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	author, found := lo.Find(store.authors, func(author bookstore.Author) bool {
		return author.ID == id
	})
	if !found {
		return nil, bookstore.ErrNotFound
	}
	return &author, nil
}

// Authors implements bookstore.AuthorRepository.
func (store *Store) Authors(ctx context.Context) ([]*bookstore.Author, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return copyAuthors(store.authors), nil
}

// AuthorsByIDs implements bookstore.AuthorRepository.
func (store *Store) AuthorsByIDs(ctx context.Context, ids []int) ([]*bookstore.Author, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	authors := lo.Filter(store.authors, func(author bookstore.Author, _ int) bool {
		return lo.Contains(ids, author.ID)
	})
	return copyAuthors(authors), nil
}

// AddAuthor implements bookstore.AuthorRepository.
func (store *Store) AddAuthor(ctx context.Context, name string) (*bookstore.Author, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.lastAuthorID++
	author := bookstore.Author{
		ID:   store.lastAuthorID,
		Name: name,
	}
	store.authors = append(store.authors, author)
	return &author, nil
}

// CountAuthors implements bookstore.AuthorRepository.
func (store *Store) CountAuthors(ctx context.Context) (int, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return len(store.authors), nil
}

// Book implements bookstore.BookRepository.
func (store *Store) Book(ctx context.Context, id int) (*bookstore.Book, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	book, found := lo.Find(store.books, func(book bookstore.Book) bool {
		return book.ID == id
	})
	if !found {
		return nil, bookstore.ErrNotFound
	}
	return &book, nil
}

// Books implements bookstore.BookRepository.
func (store *Store) Books(ctx context.Context) ([]*bookstore.Book, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return copyBooks(store.books), nil
}

// BooksByAuthorIDs implements bookstore.BookRepository.
func (store *Store) BooksByAuthorIDs(ctx context.Context, authorIDs []int) ([]*bookstore.Book, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	books := lo.Filter(store.books, func(book bookstore.Book, _ int) bool {
		return lo.Contains(authorIDs, book.AuthorID)
	})
	return copyBooks(books), nil
}

// AddBook implements bookstore.BookRepository.
func (store *Store) AddBook(ctx context.Context, name string, authorID int) (*bookstore.Book, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.lastBookID++
	book := bookstore.Book{
		ID:       store.lastBookID,
		Name:     name,
		AuthorID: authorID,
	}
	store.books = append(store.books, book)
	return &book, nil
}

// CountBooks implements bookstore.BookRepository.
func (store *Store) CountBooks(ctx context.Context) (int, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return len(store.books), nil
}

// Close implements io.Closer. It is a no-op.
func (store *Store) Close() error {
	return nil
}

func copyAuthors(authors []bookstore.Author) []*bookstore.Author {
	return lo.Map(authors, func(author bookstore.Author, _ int) *bookstore.Author {
		return lo.ToPtr(author)
	})
}

func copyBooks(books []bookstore.Book) []*bookstore.Book {
	return lo.Map(books, func(book bookstore.Book, _ int) *bookstore.Book {
		return lo.ToPtr(book)
	})
}
