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

package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gabedeko/graphql-demo/graphql/handler"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseHTTPRequest", func() {
	newPost := func(contentType string, body string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
		if len(contentType) > 0 {
			r.Header.Set("Content-Type", contentType)
		}
		return r
	}

	Context("GET", func() {
		It("parses parameters from URL", func() {
			values := url.Values{}
			values.Set("query", "query Q($n: String) { hello(name: $n) }")
			values.Set("operationName", "Q")
			values.Set("variables", `{"n":"Ted"}`)

			r := httptest.NewRequest(http.MethodGet, "/graphql?"+values.Encode(), nil)
			req, err := handler.ParseHTTPRequest(r, nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req).Should(Equal(&handler.HTTPRequest{
				Query:         "query Q($n: String) { hello(name: $n) }",
				OperationName: "Q",
				Variables:     map[string]interface{}{"n": "Ted"},
			}))
		})

		It("recognizes raw parameter", func() {
			r := httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bhello%7D&raw", nil)
			req, err := handler.ParseHTTPRequest(r, nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Raw).Should(BeTrue())
			Expect(req.Query).Should(Equal("{hello}"))
		})

		It("rejects multiple values for one parameter", func() {
			r := httptest.NewRequest(http.MethodGet, "/graphql?query=a&query=b", nil)
			_, err := handler.ParseHTTPRequest(r, nil)
			Expect(err).Should(MatchError(`multiple values are provided to "query", but only one expected`))
		})

		It("rejects invalid variables", func() {
			r := httptest.NewRequest(http.MethodGet, "/graphql?query=a&variables=%7Bx", nil)
			_, err := handler.ParseHTTPRequest(r, nil)
			Expect(err).Should(BeAssignableToTypeOf(&handler.HTTPRequestParseError{}))
			Expect(err.Error()).Should(HavePrefix("variables are invalid JSON"))
		})
	})

	Context("POST", func() {
		It("parses JSON body", func() {
			req, err := handler.ParseHTTPRequest(newPost("application/json; charset=utf-8",
				`{"query":"{ hello }","operationName":"","variables":{"a":1}}`), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req).Should(Equal(&handler.HTTPRequest{
				Query:     "{ hello }",
				Variables: map[string]interface{}{"a": float64(1)},
			}))
		})

		It("treats body without content type as JSON", func() {
			req, err := handler.ParseHTTPRequest(newPost("", `{"query":"{ hello }"}`), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Query).Should(Equal("{ hello }"))
			Expect(req.Variables).Should(BeNil())
		})

		It("accepts variables encoded as a JSON string", func() {
			req, err := handler.ParseHTTPRequest(newPost("application/json",
				`{"query":"{ hello }","variables":"{\"name\":\"Octavia\"}"}`), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Variables).Should(Equal(map[string]interface{}{"name": "Octavia"}))
		})

		It("accepts null variables", func() {
			req, err := handler.ParseHTTPRequest(newPost("application/json",
				`{"query":"{ hello }","variables":null}`), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Variables).Should(BeNil())
		})

		It("takes the entire body as query for application/graphql", func() {
			req, err := handler.ParseHTTPRequest(newPost("application/graphql", "{ hello }"), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req).Should(Equal(&handler.HTTPRequest{Query: "{ hello }"}))
		})

		It("parses form body", func() {
			values := url.Values{}
			values.Set("query", "{ viewer }")
			req, err := handler.ParseHTTPRequest(
				newPost("application/x-www-form-urlencoded", values.Encode()), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Query).Should(Equal("{ viewer }"))
		})

		It("rejects invalid JSON body", func() {
			_, err := handler.ParseHTTPRequest(newPost("application/json", `{"query":`), nil)
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(HavePrefix("POST body sent invalid JSON: "))
		})

		It("rejects body larger than the limit", func() {
			_, err := handler.ParseHTTPRequest(newPost("application/graphql", "{ hello }"),
				&handler.ParseHTTPRequestOptions{MaxBodySize: 4})
			Expect(err).Should(MatchError(handler.ErrRequestBodyTooLarge))
		})

		It("accepts body of exactly the limit", func() {
			req, err := handler.ParseHTTPRequest(newPost("application/graphql", "{ hello }"),
				&handler.ParseHTTPRequestOptions{MaxBodySize: 9})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Query).Should(Equal("{ hello }"))
		})

		It("leaves query empty for unsupported content type", func() {
			req, err := handler.ParseHTTPRequest(newPost("text/plain", "{ hello }"), nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(req.Query).Should(BeEmpty())
		})
	})

	It("leaves query empty for other methods", func() {
		r := httptest.NewRequest(http.MethodPut, "/graphql?query=%7Bhello%7D", nil)
		req, err := handler.ParseHTTPRequest(r, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(req.Query).Should(BeEmpty())
	})
})
