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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/hashicorp/go-hclog"
)

// ErrorPresenter presents an error to a http.ResponseWriter.
type ErrorPresenter interface {
	// Write sends the given error to w.
	Write(w http.ResponseWriter, err error)
}

// Errors by DefaultRequestBuilder.Build

// ErrMethodNotAllowed describes a request whose HTTP method cannot carry a GraphQL request.
type ErrMethodNotAllowed struct {
	Request *http.Request
}

// Error implements Go's error interface.
func (err ErrMethodNotAllowed) Error() string {
	return "GraphQL only supports GET and POST requests."
}

// StatusCode returns the HTTP status code of the error response.
func (err ErrMethodNotAllowed) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// ErrEmptyQuery describes an error when an empty query is not allowed.
type ErrEmptyQuery struct {
	Request *http.Request
}

// Error implements Go's error interface.
func (err ErrEmptyQuery) Error() string {
	return "Must provide query string."
}

// StatusCode returns the HTTP status code of the error response.
func (err ErrEmptyQuery) StatusCode() int {
	return http.StatusBadRequest
}

// ErrParseQuery describes an invalid GraphQL query document that failed parsing.
type ErrParseQuery struct {
	Request       *http.Request
	ParsedRequest *HTTPRequest
	Err           error
}

// Error implements Go's error interface.
func (err *ErrParseQuery) Error() string {
	return "invalid query: " + err.Err.Error()
}

// StatusCode returns the HTTP status code of the error response.
func (err *ErrParseQuery) StatusCode() int {
	return http.StatusBadRequest
}

// GraphQLErrors returns the syntax error in response format.
func (err *ErrParseQuery) GraphQLErrors() []gqlerrors.FormattedError {
	return []gqlerrors.FormattedError{gqlerrors.FormatError(err.Err)}
}

// ErrPrepare indicates that a query failed validation against the schema.
type ErrPrepare struct {
	Request       *http.Request
	ParsedRequest *HTTPRequest
	Document      *ast.Document
	Errs          []gqlerrors.FormattedError
}

// Error implements Go's error interface.
func (err *ErrPrepare) Error() string {
	var buf strings.Builder
	buf.WriteString("cannot prepare executable operation for query because of following error(s):")
	for _, e := range err.Errs {
		buf.WriteString("\n\t")
		buf.WriteString(e.Error())
	}
	return buf.String()
}

// StatusCode returns the HTTP status code of the error response.
func (err *ErrPrepare) StatusCode() int {
	return http.StatusBadRequest
}

// GraphQLErrors returns the validation errors.
func (err *ErrPrepare) GraphQLErrors() []gqlerrors.FormattedError {
	return err.Errs
}

// ErrMutationNotAllowed rejects a mutation sent with GET.
type ErrMutationNotAllowed struct {
	Request       *http.Request
	ParsedRequest *HTTPRequest
}

// Error implements Go's error interface.
func (err *ErrMutationNotAllowed) Error() string {
	return fmt.Sprintf("Can only perform a %s operation from a POST request.", ast.OperationTypeMutation)
}

// StatusCode returns the HTTP status code of the error response.
func (err *ErrMutationNotAllowed) StatusCode() int {
	return http.StatusMethodNotAllowed
}

// ErrSelectOperation indicates that the operation name does not select exactly one operation in
// the document.
type ErrSelectOperation struct {
	Request       *http.Request
	ParsedRequest *HTTPRequest
	Err           error
}

// Error implements Go's error interface.
func (err *ErrSelectOperation) Error() string {
	return err.Err.Error()
}

// Unwrap returns the underlying error.
func (err *ErrSelectOperation) Unwrap() error {
	return err.Err
}

// StatusCode returns the HTTP status code of the error response.
func (err *ErrSelectOperation) StatusCode() int {
	return http.StatusBadRequest
}

// StatusCode returns the HTTP status code of the error response.
func (err *HTTPRequestParseError) StatusCode() int {
	if errors.Is(err.Err, ErrRequestBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// StatusCodeOf returns the HTTP status code for presenting err. Errors that do not come from the
// request builder are internal errors.
func StatusCodeOf(err error) int {
	var withStatus interface{ StatusCode() int }
	if errors.As(err, &withStatus) {
		return withStatus.StatusCode()
	}
	return http.StatusInternalServerError
}

// errorResponse is the body of a response for a request that was not executed.
type errorResponse struct {
	Errors []gqlerrors.FormattedError `json:"errors"`
}

// DefaultErrorPresenter implements an ErrorPresenter which is default used by HTTP handler when no
// error presenter is provided. It writes the error as a GraphQL response with only "errors".
type DefaultErrorPresenter struct {
	// Pretty indents the JSON output.
	Pretty bool

	// Logger receives internal errors. Client errors are logged at debug level.
	Logger hclog.Logger
}

// Write implements ErrorPresenter.
func (presenter DefaultErrorPresenter) Write(w http.ResponseWriter, err error) {
	status := StatusCodeOf(err)

	var errs []gqlerrors.FormattedError
	if e, ok := err.(interface {
		GraphQLErrors() []gqlerrors.FormattedError
	}); ok {
		errs = e.GraphQLErrors()
	} else if status == http.StatusInternalServerError {
		// Do not leak internal details.
		errs = []gqlerrors.FormattedError{gqlerrors.NewFormattedError(http.StatusText(status))}
	} else {
		errs = []gqlerrors.FormattedError{gqlerrors.NewFormattedError(err.Error())}
	}

	logger := presenter.Logger
	if logger != nil {
		if status == http.StatusInternalServerError {
			logger.Error("failed to build GraphQL request", "error", err)
		} else {
			logger.Debug("rejected GraphQL request", "status", status, "error", err)
		}
	}

	switch status {
	case http.StatusMethodNotAllowed:
		if _, isMutation := err.(*ErrMutationNotAllowed); isMutation {
			w.Header().Set("Allow", http.MethodPost)
		} else {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		}
	}

	if err := writeJSON(w, status, &errorResponse{errs}, presenter.Pretty); err != nil && logger != nil {
		logger.Warn("failed to write error response", "error", err)
	}
}
