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

package server

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/gabedeko/graphql-demo/bookstore"
	"github.com/gabedeko/graphql-demo/graphql/handler"
	"github.com/gabedeko/graphql-demo/graphql/schema"
)

// RequestIDHeader carries the request id. An id sent by the client is kept.
const RequestIDHeader = "X-Request-Id"

// responseRecorder captures the status and the size of a response.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written uint64
}

func (w *responseRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += uint64(n)
	return n, err
}

// requestLogger assigns each request an id and writes an access log entry when it completes. The
// request context carries a logger annotated with the id.
func requestLogger(logger hclog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if len(requestID) == 0 {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		requestLogger := logger.With("request_id", requestID)
		r = r.WithContext(hclog.WithContext(r.Context(), requestLogger))

		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		requestLogger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"size", humanize.Bytes(recorder.written),
			"duration", time.Since(start))
	})
}

// scopeMiddleware gives every GraphQL request its own resolver scope.
func scopeMiddleware(store bookstore.Store) handler.RequestMiddleware {
	return handler.RequestMiddlewareFunc(func(request *handler.Request, next *handler.RequestMiddlewareNext) {
		hclog.FromContext(request.Ctx).Debug("executing GraphQL operation",
			"operation", request.Params.OperationName)
		request.Ctx = schema.WithScope(request.Ctx, schema.NewScope(store))
		next.Next(request)
	})
}
