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

// Package schema defines the GraphQL schema of the bookstore: the Author and Book object types, the
// root Query and the root Mutation.
//
// Resolvers take everything they need from their arguments and from the Scope attached to the
// execution context with WithScope.
package schema

import (
	"github.com/graphql-go/graphql"
)

// New builds the schema.
func New() (graphql.Schema, error) {
	var authorType, bookType *graphql.Object

	authorType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Author",
		Description: "This represents an author of a book",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Int),
				},
				"name": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
				},
				"books": &graphql.Field{
					Type:    graphql.NewList(bookType),
					Resolve: resolveAuthorBooks,
				},
			}
		}),
	})

	bookType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Book",
		Description: "This represents a book written by an author",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Int),
				},
				"name": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
				},
				"authorId": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Int),
				},
				"author": &graphql.Field{
					Type:    authorType,
					Resolve: resolveBookAuthor,
				},
			}
		}),
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root Query",
		Fields: graphql.Fields{
			"book": &graphql.Field{
				Type:        bookType,
				Description: "Single Book",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
				},
				Resolve: resolveBook,
			},
			"books": &graphql.Field{
				Type:        graphql.NewList(bookType),
				Description: "List of All Books",
				Resolve:     resolveBooks,
			},
			"author": &graphql.Field{
				Type:        authorType,
				Description: "Single Author",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
				},
				Resolve: resolveAuthor,
			},
			"authors": &graphql.Field{
				Type:        graphql.NewList(authorType),
				Description: "List of All Authors",
				Resolve:     resolveAuthors,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Mutation",
		Description: "Root Mutation",
		Fields: graphql.Fields{
			"addBook": &graphql.Field{
				Type:        bookType,
				Description: "Add a book",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
					"authorId": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.Int),
					},
				},
				Resolve: resolveAddBook,
			},
			"addAuthor": &graphql.Field{
				Type:        authorType,
				Description: "Add an author",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: resolveAddAuthor,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// MustNew is like New but panics if the schema cannot be built.
func MustNew() graphql.Schema {
	schema, err := New()
	if err != nil {
		panic(err)
	}
	return schema
}
