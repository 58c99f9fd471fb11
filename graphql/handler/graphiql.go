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
	_ "embed" // for graphiql.html
	"html/template"
	"net/http"
)

//go:embed graphiql.html
var graphiqlHTML string

var graphiqlTemplate = template.Must(template.New("graphiql").Parse(graphiqlHTML))

// graphiqlData fills the editors of the console.
type graphiqlData struct {
	Query         string
	Variables     string
	OperationName string
}

// renderGraphiQL writes the GraphiQL console prefilled with params.
func renderGraphiQL(w http.ResponseWriter, params *HTTPRequest) error {
	data := graphiqlData{
		Query:         params.Query,
		OperationName: params.OperationName,
	}
	if len(params.Variables) > 0 {
		variables, err := prettyJSON.MarshalToString(params.Variables)
		if err != nil {
			return err
		}
		data.Variables = variables
	}

	var buf bytes.Buffer
	if err := graphiqlTemplate.Execute(&buf, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
