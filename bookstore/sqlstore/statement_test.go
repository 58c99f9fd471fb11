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

package sqlstore

import (
	sq "github.com/Masterminds/squirrel"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Statements", func() {
	newStore := func(driver string) *Store {
		return &Store{
			driver:  driver,
			builder: statementBuilder(driver),
		}
	}

	Context("for PostgreSQL", func() {
		var store *Store

		BeforeEach(func() {
			store = newStore(DriverPostgres)
		})

		It("numbers the placeholders of a batch lookup", func() {
			query, args, err := store.selectAuthors().Where(sq.Eq{"id": []int{1, 3}}).ToSql()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(query).Should(Equal("SELECT id, name FROM authors WHERE id IN ($1,$2) ORDER BY id"))
			Expect(args).Should(Equal([]interface{}{1, 3}))
		})

		It("numbers the placeholders of an insert", func() {
			query, args, err := store.insertBook("Kindred", 2).ToSql()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(query).Should(Equal("INSERT INTO books (name,author_id) VALUES ($1,$2) RETURNING id"))
			Expect(args).Should(Equal([]interface{}{"Kindred", 2}))
		})

		It("returns the id of an inserted author", func() {
			query, _, err := store.insertAuthor("Octavia E. Butler").ToSql()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(query).Should(Equal("INSERT INTO authors (name) VALUES ($1) RETURNING id"))
		})
	})

	Context("for SQLite", func() {
		It("uses question mark placeholders", func() {
			query, args, err := newStore(DriverSQLite).selectBooks().Where(sq.Eq{"author_id": []int{2}}).ToSql()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(query).Should(Equal("SELECT id, name, author_id FROM books WHERE author_id IN (?) ORDER BY id"))
			Expect(args).Should(Equal([]interface{}{2}))
		})
	})
})
