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

package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// querySourceName names the query source in syntax error messages.
const querySourceName = "GraphQL request"

// PreparedOperation is a query document that has been parsed and validated against a schema. It is
// safe for concurrent use and can be executed any number of times.
type PreparedOperation struct {
	schema   *graphql.Schema
	document *ast.Document
}

// ParseQuery parses a GraphQL document. The returned error is a *gqlerrors.Error that carries the
// location of the syntax error.
func ParseQuery(query string) (*ast.Document, error) {
	return parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(query),
			Name: querySourceName,
		}),
	})
}

// Prepare validates document against schema. On failure it returns the validation errors.
func Prepare(schema *graphql.Schema, document *ast.Document) (*PreparedOperation, []gqlerrors.FormattedError) {
	result := graphql.ValidateDocument(schema, document, nil)
	if !result.IsValid {
		return nil, result.Errors
	}
	return &PreparedOperation{
		schema:   schema,
		document: document,
	}, nil
}

// Document returns the parsed document.
func (operation *PreparedOperation) Document() *ast.Document {
	return operation.document
}

// Definition returns the operation definition that would be executed for operationName. It follows
// the operation selection rules of the executor: an empty name selects the only operation in the
// document.
func (operation *PreparedOperation) Definition(operationName string) (*ast.OperationDefinition, error) {
	var selected *ast.OperationDefinition
	for _, definition := range operation.document.Definitions {
		definition, ok := definition.(*ast.OperationDefinition)
		if !ok {
			continue
		}

		if len(operationName) == 0 {
			if selected != nil {
				return nil, errors.New("Must provide operation name if query contains multiple operations.")
			}
			selected = definition
		} else if definition.Name != nil && definition.Name.Value == operationName {
			selected = definition
		}
	}

	if selected == nil {
		if len(operationName) > 0 {
			return nil, fmt.Errorf(`Unknown operation named "%s".`, operationName)
		}
		return nil, errors.New("Must provide an operation.")
	}

	return selected, nil
}

// ExecuteParams specifies the per-request inputs of an execution.
type ExecuteParams struct {
	OperationName  string
	VariableValues map[string]interface{}
	RootValue      interface{}
}

// Execute runs the operation.
func (operation *PreparedOperation) Execute(ctx context.Context, params ExecuteParams) *graphql.Result {
	return graphql.Execute(graphql.ExecuteParams{
		Schema:        *operation.schema,
		Root:          params.RootValue,
		AST:           operation.document,
		OperationName: params.OperationName,
		Args:          params.VariableValues,
		Context:       ctx,
	})
}
