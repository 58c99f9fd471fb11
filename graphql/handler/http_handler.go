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
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/hashicorp/go-hclog"
	jsoniter "github.com/json-iterator/go"
)

// httpHandler implements a http.Handler which is based on LLHandler to serve GraphQL queries from
// HTTP requests.
type httpHandler struct {
	*LLHandler

	config httpHandlerConfig

	// The handler for presenting errors occurred during preparation of execution; It doesn't handle
	// errors occurred during execution (in which ResultPresenter is responsible for.)
	errorPresenter ErrorPresenter

	// The handles for building requests and writing responses; If not given, DefaultRequestBuilder
	// and DefaultResultPresenter are used, respectively.
	requestBuilder  RequestBuilder
	resultPresenter ResultPresenter
}

// httpHandlerConfig contains configuration for a httpHandler.
type httpHandlerConfig struct {
	LLConfig

	// Configuration given to DefaultRequestBuilder; It is not applicable if custom
	// RequestBuilder is used.
	defaultRequestBuilderConfig DefaultRequestBuilderConfig

	graphiql bool
	pretty   bool
	logger   hclog.Logger

	errorPresenter  ErrorPresenter
	requestBuilder  RequestBuilder
	resultPresenter ResultPresenter
}

// Option configures httpHandler
type Option func(h *httpHandlerConfig)

// MaxBodySize sets the maximum number of bytes to be read from request body for ParseHTTPRequest
// called by DefaultRequestBuilder.
func MaxBodySize(size uint) Option {
	return func(h *httpHandlerConfig) {
		h.defaultRequestBuilderConfig.HTTPRequestParserOptions.MaxBodySize = size
	}
}

// GraphiQL enables serving the GraphiQL console to browsers that GET the endpoint.
func GraphiQL(enabled bool) Option {
	return func(h *httpHandlerConfig) {
		h.graphiql = enabled
	}
}

// Pretty indents JSON responses written by the default presenters.
func Pretty(enabled bool) Option {
	return func(h *httpHandlerConfig) {
		h.pretty = enabled
	}
}

// Middlewares appends RequestMiddleware to be applied before executing each request.
func Middlewares(middlewares ...RequestMiddleware) Option {
	return func(h *httpHandlerConfig) {
		h.Middlewares = append(h.Middlewares, middlewares...)
	}
}

// Logger sets the logger used by the default presenters.
func Logger(logger hclog.Logger) Option {
	return func(h *httpHandlerConfig) {
		h.logger = logger
	}
}

// OverrideErrorPresenter overrides default ErrorPresenter.
func OverrideErrorPresenter(errorPresenter ErrorPresenter) Option {
	return func(h *httpHandlerConfig) {
		h.errorPresenter = errorPresenter
	}
}

// OverrideRequestBuilder overrides default RequestBuilder.
func OverrideRequestBuilder(requestBuilder RequestBuilder) Option {
	return func(h *httpHandlerConfig) {
		h.requestBuilder = requestBuilder
	}
}

// OverrideResultPresenter overrides default ResultPresenter.
func OverrideResultPresenter(resultPresenter ResultPresenter) Option {
	return func(h *httpHandlerConfig) {
		h.resultPresenter = resultPresenter
	}
}

// OverrideOperationCache that overrides default OperationCache.
func OverrideOperationCache(cache OperationCache) Option {
	return func(h *httpHandlerConfig) {
		h.OperationCache = cache
	}
}

// New creates a net/http.Handler and builds a GraphQL web service to serve queries against the
// schema.
func New(schema *graphql.Schema, opts ...Option) (http.Handler, error) {
	// Apply Options on config.
	config := httpHandlerConfig{
		LLConfig: LLConfig{
			Schema: schema,
		},

		defaultRequestBuilderConfig: DefaultRequestBuilderConfig{
			HTTPRequestParserOptions: ParseHTTPRequestOptions{
				MaxBodySize: DefaultMaxBodySize,
			},
		},
	}
	for _, opt := range opts {
		opt(&config)
	}

	if config.logger == nil {
		config.logger = hclog.NewNullLogger()
	}

	baseHandler, err := NewLLHandler(&config.LLConfig)
	if err != nil {
		return nil, err
	}

	requestBuilder := config.requestBuilder
	if requestBuilder == nil {
		requestBuilder = DefaultRequestBuilder{
			Config: &config.defaultRequestBuilderConfig,
		}
	}

	resultPresenter := config.resultPresenter
	if resultPresenter == nil {
		resultPresenter = DefaultResultPresenter{
			Pretty: config.pretty,
			Logger: config.logger,
		}
	}

	errorPresenter := config.errorPresenter
	if errorPresenter == nil {
		errorPresenter = DefaultErrorPresenter{
			Pretty: config.pretty,
			Logger: config.logger,
		}
	}

	return &httpHandler{
		LLHandler:       baseHandler,
		config:          config,
		errorPresenter:  errorPresenter,
		requestBuilder:  requestBuilder,
		resultPresenter: resultPresenter,
	}, nil
}

// ErrorPresenter returns h.errorPresenter.
func (h *httpHandler) ErrorPresenter() ErrorPresenter {
	return h.errorPresenter
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.config.graphiql && h.serveGraphiQL(w, r) {
		return
	}

	// Prepare executable operation from r with RequestBuilder.
	req, err := h.requestBuilder.Build(r, h)
	if err != nil {
		// Present error.
		h.errorPresenter.Write(w, err)
		return
	}

	// Serve the request with LLHandler which executes query.
	result := h.Serve(req)

	// Present the result to w.
	h.resultPresenter.Write(w, r, req, result)
}

// serveGraphiQL renders the console for a browser GET that doesn't ask for the raw result. It
// returns false if r should be served as a GraphQL request.
func (h *httpHandler) serveGraphiQL(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet || !strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}

	params, err := ParseHTTPRequest(r, &h.config.defaultRequestBuilderConfig.HTTPRequestParserOptions)
	if err != nil || params.Raw {
		return false
	}

	if err := renderGraphiQL(w, params); err != nil {
		h.config.logger.Error("failed to render GraphiQL", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return true
}

// RequestBuilder generates a Request to be served by LLHandler from an HTTP request.
type RequestBuilder interface {
	// Build turns a http.Request r into a Request for h.
	Build(r *http.Request, h HTTPHandler) (*Request, error)
}

// DefaultRequestBuilderConfig specifies settings to configure DefaultRequestBuilder.
type DefaultRequestBuilderConfig struct {
	HTTPRequestParserOptions ParseHTTPRequestOptions
}

// DefaultRequestBuilder implements the default request builder used by HTTP handler to obtain
// a Request object from a http.Request.
type DefaultRequestBuilder struct {
	Config *DefaultRequestBuilderConfig
}

// HTTPHandler provides interfaces to access settings in httpHandler from RequestBuilder.
type HTTPHandler interface {
	// Schema served by this handler
	Schema() *graphql.Schema

	// OperationCache for the parsed queries
	OperationCache() OperationCache
}

// Build implements RequestBuilder.
func (builder DefaultRequestBuilder) Build(r *http.Request, h HTTPHandler) (*Request, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return nil, ErrMethodNotAllowed{
			Request: r,
		}
	}

	var parserOptions *ParseHTTPRequestOptions
	if builder.Config != nil {
		parserOptions = &builder.Config.HTTPRequestParserOptions
	}

	// Parse query from request parameters.
	parsedReq, err := ParseHTTPRequest(r, parserOptions)
	if err != nil {
		return nil, err
	}

	// Empty query is an error.
	if len(strings.TrimSpace(parsedReq.Query)) == 0 {
		return nil, ErrEmptyQuery{
			Request: r,
		}
	}

	// Try to find the operation that has been prepared for given query before from cache.
	cache := h.OperationCache()
	operation, ok := cache.Get(parsedReq.Query)
	if !ok {
		document, err := ParseQuery(parsedReq.Query)
		if err != nil {
			return nil, &ErrParseQuery{
				Request:       r,
				ParsedRequest: parsedReq,
				Err:           err,
			}
		}

		// Validate the document against the schema.
		prepared, validationErrs := Prepare(h.Schema(), document)
		if len(validationErrs) > 0 {
			return nil, &ErrPrepare{
				Request:       r,
				ParsedRequest: parsedReq,
				Document:      document,
				Errs:          validationErrs,
			}
		}
		operation = prepared

		// Update cache.
		cache.Add(parsedReq.Query, operation)
	}

	definition, err := operation.Definition(parsedReq.OperationName)
	if err != nil {
		return nil, &ErrSelectOperation{
			Request:       r,
			ParsedRequest: parsedReq,
			Err:           err,
		}
	}

	if r.Method == http.MethodGet && definition.Operation == ast.OperationTypeMutation {
		return nil, &ErrMutationNotAllowed{
			Request:       r,
			ParsedRequest: parsedReq,
		}
	}

	return &Request{
		Ctx:       r.Context(),
		Operation: operation,
		Params: ExecuteParams{
			OperationName:  parsedReq.OperationName,
			VariableValues: parsedReq.Variables,
		},
	}, nil
}

// ResultPresenter presents an execution result to a http.ResponseWriter.
type ResultPresenter interface {
	// Write writes a graphql.Result to w.
	Write(
		w http.ResponseWriter,
		httpRequest *http.Request,
		graphqlRequest *Request,
		result *graphql.Result)
}

// DefaultResultPresenter implements a ResultPresenter used by HTTP handler to present a
// graphql.Result. A result without data is a server error.
type DefaultResultPresenter struct {
	// Pretty indents the JSON output.
	Pretty bool

	// Logger receives write failures. May be nil.
	Logger hclog.Logger
}

// Write implements ResultPresenter.
func (presenter DefaultResultPresenter) Write(
	w http.ResponseWriter,
	httpRequest *http.Request,
	graphqlRequest *Request,
	result *graphql.Result) {

	status := http.StatusOK
	if result.Data == nil && len(result.Errors) > 0 {
		status = http.StatusInternalServerError
	}

	if err := writeJSON(w, status, result, presenter.Pretty); err != nil && presenter.Logger != nil {
		presenter.Logger.Warn("failed to write result", "error", err)
	}
}

// prettyJSON is the jsoniter configuration for indented output.
var prettyJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	IndentionStep:          2,
}.Froze()

// writeJSON serializes v to JSON encoding as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}, pretty bool) error {
	header := w.Header()
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	api := json
	if pretty {
		api = prettyJSON
	}

	stream := api.BorrowStream(w)
	defer api.ReturnStream(stream)
	stream.WriteVal(v)
	stream.Flush()
	return stream.Error
}
