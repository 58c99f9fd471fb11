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
	"context"

	"github.com/pkg/errors"
)

// migrations lists the DDL statements for each supported driver. books.author_id carries no foreign
// key: a book may refer to an author that does not exist.
var migrations = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS authors (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			name      TEXT NOT NULL,
			author_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS books_author_id_idx ON books (author_id)`,
	},

	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS authors (
			id   SERIAL PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id        SERIAL PRIMARY KEY,
			name      TEXT NOT NULL,
			author_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS books_author_id_idx ON books (author_id)`,
	},
}

func (store *Store) migrate(ctx context.Context) error {
	statements, ok := migrations[store.driver]
	if !ok {
		return errors.Errorf("sqlstore: unsupported driver %q", store.driver)
	}

	for _, statement := range statements {
		if _, err := store.db.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, "sqlstore: migrate")
		}
	}

	return nil
}
