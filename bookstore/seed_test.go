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

package bookstore_test

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/bookstore/memory"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// failingStore fails every insertion.
type failingStore struct {
	*memory.Store
}

func (failingStore) AddAuthor(ctx context.Context, name string) (*bookstore.Author, error) {
	return nil, errors.New("disk full")
}

var _ = Describe("Seed", func() {
	It("describes three authors and eight books", func() {
		seed := bookstore.DefaultSeed()
		Expect(seed.NumAuthors()).Should(Equal(3))
		Expect(seed.NumBooks()).Should(Equal(8))
		Expect(seed.Authors[0]).Should(Equal(bookstore.SeedAuthor{
			Name:  "Octavia Butler",
			Books: []string{"Liliths Brood", "The Metamorphosis", "Kindres"},
		}))
	})

	It("orders ids by author first, then by book", func() {
		ctx := context.Background()
		store := memory.New()

		seed := &bookstore.Seed{
			Authors: []bookstore.SeedAuthor{
				{Name: "A", Books: []string{"a1", "a2"}},
				{Name: "B", Books: []string{"b1"}},
			},
		}
		Expect(bookstore.Load(ctx, store, seed)).Should(BeTrue())

		Expect(store.Books(ctx)).Should(Equal([]*bookstore.Book{
			{ID: 1, Name: "a1", AuthorID: 1},
			{ID: 2, Name: "a2", AuthorID: 1},
			{ID: 3, Name: "b1", AuthorID: 2},
		}))
	})

	It("does nothing for a nil seed", func() {
		Expect(bookstore.Load(context.Background(), memory.New(), nil)).Should(BeFalse())
	})

	It("reports insertion failures", func() {
		_, err := bookstore.Load(context.Background(), failingStore{memory.New()}, bookstore.DefaultSeed())
		Expect(err).Should(MatchError(`seed author "Octavia Butler": disk full`))
		Expect(errors.Cause(err)).Should(MatchError("disk full"))
	})

	It("recognizes ErrNotFound through wrapping", func() {
		Expect(bookstore.IsNotFound(errors.Wrap(bookstore.ErrNotFound, "lookup"))).Should(BeTrue())
		Expect(bookstore.IsNotFound(errors.New("other"))).Should(BeFalse())
	})
})
