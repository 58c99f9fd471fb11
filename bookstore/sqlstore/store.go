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

// Package sqlstore provides a bookstore.Store backed by a SQL database. SQLite (through
// github.com/mattn/go-sqlite3) and PostgreSQL (through github.com/lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	// Register SQL drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gabedeko/graphql-demo/bookstore"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	authorsTable = "authors"
	booksTable   = "books"
)

// Store implements bookstore.Store on top of a *sql.DB.
type Store struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

var _ bookstore.Store = (*Store)(nil)

// Open connects to the database identified by driver and dsn, verifies the connection and creates
// the tables if they do not exist.
func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	if _, ok := migrations[driver]; !ok {
		return nil, errors.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: open %s database", driver)
	}

	// SQLite serializes writers anyway, and an in-memory database only lives as long as its
	// connection.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "sqlstore: connect to %s database", driver)
	}

	store, err := New(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New creates a Store from an opened database and runs the migrations.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	store := &Store{
		db:      db,
		driver:  driver,
		builder: statementBuilder(driver).RunWith(db),
	}

	if err := store.migrate(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// statementBuilder returns a builder with the placeholder format of driver. lib/pq only accepts
// numbered placeholders.
func statementBuilder(driver string) sq.StatementBuilderType {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return sq.StatementBuilder.PlaceholderFormat(format)
}

// Driver returns the name of the SQL driver used by the store.
func (store *Store) Driver() string {
	return store.driver
}

// Close implements io.Closer.
func (store *Store) Close() error {
	return store.db.Close()
}

// Author implements bookstore.AuthorRepository.
func (store *Store) Author(ctx context.Context, id int) (*bookstore.Author, error) {
	var author bookstore.Author
	err := store.builder.
		Select("id", "name").
		From(authorsTable).
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&author.ID, &author.Name)
	if err == sql.ErrNoRows {
		return nil, bookstore.ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: select author %d", id)
	}
	return &author, nil
}

// Authors implements bookstore.AuthorRepository.
func (store *Store) Authors(ctx context.Context) ([]*bookstore.Author, error) {
	return store.queryAuthors(ctx, store.selectAuthors())
}

// AuthorsByIDs implements bookstore.AuthorRepository.
func (store *Store) AuthorsByIDs(ctx context.Context, ids []int) ([]*bookstore.Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return store.queryAuthors(ctx, store.selectAuthors().Where(sq.Eq{"id": ids}))
}

// AddAuthor implements bookstore.AuthorRepository.
func (store *Store) AddAuthor(ctx context.Context, name string) (*bookstore.Author, error) {
	author := &bookstore.Author{
		Name: name,
	}
	err := store.insertAuthor(name).
		QueryRowContext(ctx).
		Scan(&author.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: insert author %q", name)
	}
	return author, nil
}

// CountAuthors implements bookstore.AuthorRepository.
func (store *Store) CountAuthors(ctx context.Context) (int, error) {
	return store.count(ctx, authorsTable)
}

// Book implements bookstore.BookRepository.
func (store *Store) Book(ctx context.Context, id int) (*bookstore.Book, error) {
	var book bookstore.Book
	err := store.builder.
		Select("id", "name", "author_id").
		From(booksTable).
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&book.ID, &book.Name, &book.AuthorID)
	if err == sql.ErrNoRows {
		return nil, bookstore.ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: select book %d", id)
	}
	return &book, nil
}

// Books implements bookstore.BookRepository.
func (store *Store) Books(ctx context.Context) ([]*bookstore.Book, error) {
	return store.queryBooks(ctx, store.selectBooks())
}

// BooksByAuthorIDs implements bookstore.BookRepository.
func (store *Store) BooksByAuthorIDs(ctx context.Context, authorIDs []int) ([]*bookstore.Book, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	return store.queryBooks(ctx, store.selectBooks().Where(sq.Eq{"author_id": authorIDs}))
}

// AddBook implements bookstore.BookRepository.
func (store *Store) AddBook(ctx context.Context, name string, authorID int) (*bookstore.Book, error) {
	book := &bookstore.Book{
		Name:     name,
		AuthorID: authorID,
	}
	err := store.insertBook(name, authorID).
		QueryRowContext(ctx).
		Scan(&book.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlstore: insert book %q", name)
	}
	return book, nil
}

// CountBooks implements bookstore.BookRepository.
func (store *Store) CountBooks(ctx context.Context) (int, error) {
	return store.count(ctx, booksTable)
}

func (store *Store) insertAuthor(name string) sq.InsertBuilder {
	return store.builder.
		Insert(authorsTable).
		Columns("name").
		Values(name).
		Suffix("RETURNING id")
}

func (store *Store) insertBook(name string, authorID int) sq.InsertBuilder {
	return store.builder.
		Insert(booksTable).
		Columns("name", "author_id").
		Values(name, authorID).
		Suffix("RETURNING id")
}

func (store *Store) selectAuthors() sq.SelectBuilder {
	return store.builder.Select("id", "name").From(authorsTable).OrderBy("id")
}

func (store *Store) selectBooks() sq.SelectBuilder {
	return store.builder.Select("id", "name", "author_id").From(booksTable).OrderBy("id")
}

func (store *Store) queryAuthors(ctx context.Context, query sq.SelectBuilder) ([]*bookstore.Author, error) {
	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: select authors")
	}
	defer rows.Close()

	authors := []*bookstore.Author{}
	for rows.Next() {
		author := &bookstore.Author{}
		if err := rows.Scan(&author.ID, &author.Name); err != nil {
			return nil, errors.Wrap(err, "sqlstore: scan author")
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlstore: select authors")
	}
	return authors, nil
}

func (store *Store) queryBooks(ctx context.Context, query sq.SelectBuilder) ([]*bookstore.Book, error) {
	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: select books")
	}
	defer rows.Close()

	books := []*bookstore.Book{}
	for rows.Next() {
		book := &bookstore.Book{}
		if err := rows.Scan(&book.ID, &book.Name, &book.AuthorID); err != nil {
			return nil, errors.Wrap(err, "sqlstore: scan book")
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlstore: select books")
	}
	return books, nil
}

func (store *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	err := store.builder.
		Select("COUNT(*)").
		From(table).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "sqlstore: count %s", table)
	}
	return n, nil
}
