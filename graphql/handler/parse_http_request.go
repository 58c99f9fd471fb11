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
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// If the value doesn't contains value for the given key, return an empty string without error.
// If there're multiple values associated with the key, return an error. Otherwise, return the
// single value.
func getOneValue(values url.Values, key string) (string, error) {
	v := values[key]
	switch len(v) {
	case 0:
		return "", nil
	case 1:
		return v[0], nil
	default:
		return "", fmt.Errorf(`multiple values are provided to "%s", but only one expected`, key)
	}
}

// decodeVariables decodes the "variables" parameter. It accepts a JSON object or a string that
// contains a JSON-encoded object. null and the empty string mean no variables.
func decodeVariables(data []byte) (map[string]interface{}, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil, err
		}
		return decodeVariables([]byte(encoded))
	}

	var variables map[string]interface{}
	if err := json.Unmarshal(data, &variables); err != nil {
		return nil, fmt.Errorf("variables are invalid JSON: %s", err)
	}
	return variables, nil
}

// Parse a HTTPRequest from url.Values. r is used for including in error value to provide verbose
// context for debugging.
func parseRequestFromValues(
	r *http.Request,
	options *ParseHTTPRequestOptions,
	values url.Values) (*HTTPRequest, error) {

	var (
		req HTTPRequest
		err error
	)

	newError := func(err error) error {
		return &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     err,
		}
	}

	if req.Query, err = getOneValue(values, "query"); err != nil {
		return nil, newError(err)
	}
	if req.OperationName, err = getOneValue(values, "operationName"); err != nil {
		return nil, newError(err)
	}

	variables, err := getOneValue(values, "variables")
	if err != nil {
		return nil, newError(err)
	}
	if req.Variables, err = decodeVariables([]byte(variables)); err != nil {
		return nil, newError(err)
	}

	_, req.Raw = values["raw"]

	return &req, nil
}

// ParseHTTPRequestOptions provides settings to ParseHTTPRequest.
type ParseHTTPRequestOptions struct {
	// Maximum size in bytes to be read when parsing a GraphQL query from HTTP request body. If it is
	// not set, the size is capped at DefaultMaxBodySize.
	MaxBodySize uint
}

// DefaultMaxBodySize is the default limit of a request body.
const DefaultMaxBodySize = 10 << 20 // 10MiB

// HTTPRequest contains result values of ParseHTTPRequest.
type HTTPRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`

	// Raw is set by the "raw" URL parameter. It asks for a JSON response even when the client
	// accepts HTML.
	Raw bool `json:"-"`
}

// httpRequestBody is the JSON body of a POST request. Variables are decoded separately because they
// may be sent as a JSON-encoded string.
type httpRequestBody struct {
	Query         string              `json:"query"`
	OperationName string              `json:"operationName"`
	Variables     jsoniter.RawMessage `json:"variables"`
}

// HTTPRequestParseError is returned by ParseHTTPRequest when parsing failed.
type HTTPRequestParseError struct {
	Request *http.Request
	Options *ParseHTTPRequestOptions
	Err     error
}

// Error implements Go's error interface.
func (err *HTTPRequestParseError) Error() string {
	return err.Err.Error()
}

// Unwrap returns the underlying error.
func (err *HTTPRequestParseError) Unwrap() error {
	return err.Err
}

// ErrRequestBodyTooLarge is wrapped by HTTPRequestParseError when the body exceeds
// ParseHTTPRequestOptions.MaxBodySize.
var ErrRequestBodyTooLarge = errors.New("request body is too large")

// ParseHTTPRequest parses a GraphQL request from a http.Request object.
func ParseHTTPRequest(r *http.Request, options *ParseHTTPRequestOptions) (*HTTPRequest, error) {
	if options == nil {
		options = &ParseHTTPRequestOptions{}
	}

	newError := func(err error) error {
		return &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     err,
		}
	}

	switch r.Method {
	case http.MethodGet:
		values, err := url.ParseQuery(r.URL.RawQuery)
		if err != nil {
			return nil, newError(err)
		}
		return parseRequestFromValues(r, options, values)

	case http.MethodPost:
		// Determine the content-type. Ignore error.
		contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

		maxBodySize := options.MaxBodySize
		if maxBodySize == 0 {
			maxBodySize = DefaultMaxBodySize
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, int64(maxBodySize)+1))
		if err != nil {
			return nil, newError(err)
		}

		// Check the overflow.
		if uint(len(body)) > maxBodySize {
			return nil, newError(ErrRequestBodyTooLarge)
		}

		// See https://github.com/graphql/express-graphql/blob/8826952/src/parseBody.js for the
		// supported content-type.
		switch contentType {
		case "application/graphql":
			// The entire body is the query.
			return &HTTPRequest{
				Query: string(body),
			}, nil

		case "application/x-www-form-urlencoded":
			values, err := url.ParseQuery(string(body))
			if err != nil {
				return nil, newError(err)
			}
			return parseRequestFromValues(r, options, values)

		case "", "application/json":
			var reqBody httpRequestBody
			if err := json.Unmarshal(body, &reqBody); err != nil {
				return nil, newError(fmt.Errorf("POST body sent invalid JSON: %s", err))
			}

			variables, err := decodeVariables(reqBody.Variables)
			if err != nil {
				return nil, newError(err)
			}

			return &HTTPRequest{
				Query:         reqBody.Query,
				OperationName: reqBody.OperationName,
				Variables:     variables,
			}, nil

		default:
			// Unsupported content-type leaves the query empty.
			return &HTTPRequest{}, nil
		}

	default:
		// Unsupported method leaves the query empty.
		return &HTTPRequest{}, nil
	}
}
