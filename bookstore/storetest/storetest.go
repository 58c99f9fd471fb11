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

// Package storetest contains specs shared by the bookstore.Store implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/gabedeko/graphql-demo/bookstore"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// DescribeStore registers the specs that every bookstore.Store must satisfy. newStore is called
// before each spec and must return an empty store.
func DescribeStore(newStore func() bookstore.Store) {
	var (
		ctx   context.Context
		store bookstore.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()
	})

	AfterEach(func() {
		// nil when the spec was skipped before the store was created.
		if store != nil {
			Expect(store.Close()).Should(Succeed())
			store = nil
		}
	})

	addAuthors := func(names ...string) []*bookstore.Author {
		authors := make([]*bookstore.Author, len(names))
		for i, name := range names {
			author, err := store.AddAuthor(ctx, name)
			Expect(err).ShouldNot(HaveOccurred())
			authors[i] = author
		}
		return authors
	}

	It("starts empty", func() {
		Expect(store.CountAuthors(ctx)).Should(Equal(0))
		Expect(store.CountBooks(ctx)).Should(Equal(0))
		Expect(store.Authors(ctx)).Should(BeEmpty())
		Expect(store.Books(ctx)).Should(BeEmpty())
	})

	Describe("authors", func() {
		It("assigns sequential ids starting from 1", func() {
			authors := addAuthors("Octavia Butler", "Franz Kafka", "Ted Chiang")
			Expect(authors).Should(Equal([]*bookstore.Author{
				{ID: 1, Name: "Octavia Butler"},
				{ID: 2, Name: "Franz Kafka"},
				{ID: 3, Name: "Ted Chiang"},
			}))
			Expect(store.CountAuthors(ctx)).Should(Equal(3))
		})

		It("looks up an author by id", func() {
			addAuthors("Octavia Butler", "Franz Kafka")

			author, err := store.Author(ctx, 2)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(author).Should(Equal(&bookstore.Author{ID: 2, Name: "Franz Kafka"}))
		})

		It("returns ErrNotFound for an unknown id", func() {
			addAuthors("Octavia Butler")

			_, err := store.Author(ctx, 42)
			Expect(bookstore.IsNotFound(err)).Should(BeTrue())
		})

		It("lists authors in insertion order", func() {
			addAuthors("C", "A", "B")

			authors, err := store.Authors(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(lo.Map(authors, func(author *bookstore.Author, _ int) string {
				return author.Name
			})).Should(Equal([]string{"C", "A", "B"}))
		})

		It("loads authors by ids and skips unknown ones", func() {
			addAuthors("Octavia Butler", "Franz Kafka", "Ted Chiang")

			authors, err := store.AuthorsByIDs(ctx, []int{3, 1, 99})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(authors).Should(ConsistOf(
				&bookstore.Author{ID: 1, Name: "Octavia Butler"},
				&bookstore.Author{ID: 3, Name: "Ted Chiang"},
			))

			Expect(store.AuthorsByIDs(ctx, nil)).Should(BeEmpty())
		})

		It("returns copies of stored records", func() {
			addAuthors("Octavia Butler")

			author, err := store.Author(ctx, 1)
			Expect(err).ShouldNot(HaveOccurred())
			author.Name = "Someone Else"

			Expect(store.Author(ctx, 1)).Should(Equal(&bookstore.Author{ID: 1, Name: "Octavia Butler"}))
		})

		It("assigns distinct ids to concurrent insertions", func() {
			const numWriters = 16

			var (
				wg    sync.WaitGroup
				mutex sync.Mutex
				ids   []int
			)
			for i := 0; i < numWriters; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()

					author, err := store.AddAuthor(ctx, fmt.Sprintf("Author %d", i))
					Expect(err).ShouldNot(HaveOccurred())

					mutex.Lock()
					ids = append(ids, author.ID)
					mutex.Unlock()
				}(i)
			}
			wg.Wait()

			Expect(lo.Uniq(ids)).Should(HaveLen(numWriters))
			Expect(ids).Should(ConsistOf(lo.RangeFrom(1, numWriters)))
			Expect(store.CountAuthors(ctx)).Should(Equal(numWriters))
		})
	})

	Describe("books", func() {
		It("assigns sequential ids and keeps the given author id", func() {
			addAuthors("Octavia Butler")

			book, err := store.AddBook(ctx, "Kindres", 1)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(book).Should(Equal(&bookstore.Book{ID: 1, Name: "Kindres", AuthorID: 1}))

			book, err = store.AddBook(ctx, "Liliths Brood", 1)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(book.ID).Should(Equal(2))

			Expect(store.CountBooks(ctx)).Should(Equal(2))
		})

		It("accepts an author id that refers to no author", func() {
			book, err := store.AddBook(ctx, "Orphan", 77)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(book.AuthorID).Should(Equal(77))

			Expect(store.Book(ctx, book.ID)).Should(Equal(book))
		})

		It("returns ErrNotFound for an unknown id", func() {
			_, err := store.Book(ctx, 1)
			Expect(bookstore.IsNotFound(err)).Should(BeTrue())
		})

		It("lists books by author ids in insertion order", func() {
			addAuthors("A", "B", "C")
			for _, book := range []bookstore.Book{
				{Name: "a1", AuthorID: 1},
				{Name: "b1", AuthorID: 2},
				{Name: "a2", AuthorID: 1},
				{Name: "c1", AuthorID: 3},
			} {
				_, err := store.AddBook(ctx, book.Name, book.AuthorID)
				Expect(err).ShouldNot(HaveOccurred())
			}

			books, err := store.BooksByAuthorIDs(ctx, []int{1, 3})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(books).Should(Equal([]*bookstore.Book{
				{ID: 1, Name: "a1", AuthorID: 1},
				{ID: 3, Name: "a2", AuthorID: 1},
				{ID: 4, Name: "c1", AuthorID: 3},
			}))

			Expect(store.BooksByAuthorIDs(ctx, []int{99})).Should(BeEmpty())
			Expect(store.BooksByAuthorIDs(ctx, nil)).Should(BeEmpty())

			books, err = store.Books(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(books).Should(HaveLen(4))
			Expect(books[1]).Should(Equal(&bookstore.Book{ID: 2, Name: "b1", AuthorID: 2}))
		})
	})

	Describe("seed", func() {
		It("loads the default seed into an empty store", func() {
			loaded, err := bookstore.Load(ctx, store, bookstore.DefaultSeed())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(loaded).Should(BeTrue())

			Expect(store.CountAuthors(ctx)).Should(Equal(3))
			Expect(store.CountBooks(ctx)).Should(Equal(8))

			Expect(store.Book(ctx, 2)).Should(Equal(&bookstore.Book{
				ID:       2,
				Name:     "The Metamorphosis",
				AuthorID: 1,
			}))
			Expect(store.Book(ctx, 8)).Should(Equal(&bookstore.Book{
				ID:       8,
				Name:     "Blues People",
				AuthorID: 3,
			}))
			Expect(store.Author(ctx, 3)).Should(Equal(&bookstore.Author{ID: 3, Name: "Ted Chiang"}))
		})

		It("skips a store that already holds records", func() {
			addAuthors("Ursula K. Le Guin")

			loaded, err := bookstore.Load(ctx, store, bookstore.DefaultSeed())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(loaded).Should(BeFalse())
			Expect(store.CountAuthors(ctx)).Should(Equal(1))
			Expect(store.CountBooks(ctx)).Should(Equal(0))
		})
	})
}
