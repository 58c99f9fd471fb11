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

package bookstore

import (
	"context"

	"github.com/pkg/errors"
)

// Seed describes the records loaded into an empty store at startup.
type Seed struct {
	Authors []SeedAuthor
}

// SeedAuthor is an author to be seeded together with the titles of their books.
type SeedAuthor struct {
	Name  string
	Books []string
}

// DefaultSeed returns the built-in data set. Loaded into an empty store, authors get ids 1 to 3 and
// books get ids 1 to 8.
func DefaultSeed() *Seed {
	return &Seed{
		Authors: []SeedAuthor{
			{
				Name:  "Octavia Butler",
				Books: []string{"Liliths Brood", "The Metamorphosis", "Kindres"},
			},
			{
				Name:  "Franz Kafka",
				Books: []string{"The Castle", "Parable of the Sower", "The Trial"},
			},
			{
				Name:  "Ted Chiang",
				Books: []string{"Exhalation", "Blues People"},
			},
		},
	}
}

// NumAuthors returns the number of authors in the seed.
func (seed *Seed) NumAuthors() int {
	return len(seed.Authors)
}

// NumBooks returns the number of books in the seed.
func (seed *Seed) NumBooks() int {
	n := 0
	for _, author := range seed.Authors {
		n += len(author.Books)
	}
	return n
}

// Load inserts seed into store if both collections are empty and reports whether it did so. All
// authors are inserted before any book so that ids follow the order of the seed.
func Load(ctx context.Context, store Store, seed *Seed) (bool, error) {
	if seed == nil {
		return false, nil
	}

	numAuthors, err := store.CountAuthors(ctx)
	if err != nil {
		return false, errors.Wrap(err, "count authors")
	}
	numBooks, err := store.CountBooks(ctx)
	if err != nil {
		return false, errors.Wrap(err, "count books")
	}
	if numAuthors > 0 || numBooks > 0 {
		return false, nil
	}

	authorIDs := make([]int, len(seed.Authors))
	for i, seedAuthor := range seed.Authors {
		author, err := store.AddAuthor(ctx, seedAuthor.Name)
		if err != nil {
			return false, errors.Wrapf(err, "seed author %q", seedAuthor.Name)
		}
		authorIDs[i] = author.ID
	}

	for i, seedAuthor := range seed.Authors {
		for _, title := range seedAuthor.Books {
			if _, err := store.AddBook(ctx, title, authorIDs[i]); err != nil {
				return false, errors.Wrapf(err, "seed book %q", title)
			}
		}
	}

	return true, nil
}
