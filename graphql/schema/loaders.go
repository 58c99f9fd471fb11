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

	"github.com/samber/lo"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/dataloader"
)

const (
	authorLoaderKey      = "authorByID"
	authorBooksLoaderKey = "booksByAuthorID"
)

// taskIDs collects the int keys of tasks.
func taskIDs(tasks *dataloader.TaskList) []int {
	return lo.Uniq(lo.Map(tasks.Keys(), func(key dataloader.Key, _ int) int {
		return key.(int)
	}))
}

func failAll(tasks *dataloader.TaskList, err error) {
	for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
		taskIter.SetError(err)
	}
}

// newAuthorLoader creates a loader that maps an author id to its *bookstore.Author, or to nil when
// no author has the id.
func newAuthorLoader(store bookstore.AuthorRepository) (*dataloader.DataLoader, error) {
	return dataloader.New(dataloader.Config{
		BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
			authors, err := store.AuthorsByIDs(ctx, taskIDs(tasks))
			if err != nil {
				failAll(tasks, err)
				return
			}

			byID := lo.KeyBy(authors, func(author *bookstore.Author) int {
				return author.ID
			})
			for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
				if author, ok := byID[taskIter.Key().(int)]; ok {
					taskIter.Complete(author)
				} else {
					taskIter.Complete(nil)
				}
			}
		}),
	})
}

// newAuthorBooksLoader creates a loader that maps an author id to the books written by the author.
func newAuthorBooksLoader(store bookstore.BookRepository) (*dataloader.DataLoader, error) {
	return dataloader.New(dataloader.Config{
		BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
			books, err := store.BooksByAuthorIDs(ctx, taskIDs(tasks))
			if err != nil {
				failAll(tasks, err)
				return
			}

			byAuthorID := lo.GroupBy(books, func(book *bookstore.Book) int {
				return book.AuthorID
			})
			for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
				authorBooks := byAuthorID[taskIter.Key().(int)]
				if authorBooks == nil {
					authorBooks = []*bookstore.Book{}
				}
				taskIter.Complete(authorBooks)
			}
		}),
	})
}

func (scope *Scope) authorLoader() (*dataloader.DataLoader, error) {
	return scope.loaders.GetOrCreate(&dataloader.RegisterInfo{
		Key: authorLoaderKey,
		Factory: dataloader.FactoryFunc(func() (*dataloader.DataLoader, error) {
			return newAuthorLoader(scope.store)
		}),
	})
}

func (scope *Scope) authorBooksLoader() (*dataloader.DataLoader, error) {
	return scope.loaders.GetOrCreate(&dataloader.RegisterInfo{
		Key: authorBooksLoaderKey,
		Factory: dataloader.FactoryFunc(func() (*dataloader.DataLoader, error) {
			return newAuthorBooksLoader(scope.store)
		}),
	})
}

// primeAuthors seeds the author loader with authors already fetched by a resolver.
func (scope *Scope) primeAuthors(authors ...*bookstore.Author) error {
	loader, err := scope.authorLoader()
	if err != nil {
		return err
	}
	for _, author := range authors {
		if err := loader.Prime(author.ID, author); err != nil {
			return err
		}
	}
	return nil
}
