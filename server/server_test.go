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

package server_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	jsoniter "github.com/json-iterator/go"

	"github.com/gabedeko/graphql-demo/config"
	"github.com/gabedeko/graphql-demo/server"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type object = map[string]interface{}
type list = []interface{}

type response struct {
	Data   interface{}   `json:"data"`
	Errors []interface{} `json:"errors"`
}

// syncBuffer is a bytes.Buffer that is safe to be written from server goroutines.
type syncBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}

func graphqlPost(h http.Handler, query string) *httptest.ResponseRecorder {
	body, err := jsoniter.Marshal(object{"query": query})
	Expect(err).ShouldNot(HaveOccurred())

	r := httptest.NewRequest(http.MethodPost, server.Path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(w *httptest.ResponseRecorder) *response {
	var resp response
	Expect(jsoniter.Unmarshal(w.Body.Bytes(), &resp)).Should(Succeed())
	return &resp
}

var _ = Describe("Server", func() {
	var (
		cfg     *config.Config
		logs    *syncBuffer
		logger  hclog.Logger
		srv     *server.Server
		handler http.Handler
	)

	BeforeEach(func() {
		cfg = config.Default()
		logs = &syncBuffer{}
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "test",
			Level:  hclog.Debug,
			Output: logs,
		})
	})

	JustBeforeEach(func() {
		var err error
		srv, err = server.New(context.Background(), cfg, logger)
		Expect(err).ShouldNot(HaveOccurred())
		handler = srv.Handler()
	})

	AfterEach(func() {
		if srv != nil {
			Expect(srv.Close()).Should(Succeed())
			srv = nil
		}
	})

	It("serves seeded books with their authors", func() {
		w := graphqlPost(handler, `{ books { id name author { id name } } }`)
		Expect(w.Code).Should(Equal(http.StatusOK))

		resp := decode(w)
		Expect(resp.Errors).Should(BeEmpty())
		books := resp.Data.(object)["books"].(list)
		Expect(books).Should(HaveLen(8))
		Expect(books[1]).Should(Equal(object{
			"id":   float64(2),
			"name": "The Metamorphosis",
			"author": object{
				"id":   float64(1),
				"name": "Octavia Butler",
			},
		}))
	})

	It("lists added author", func() {
		w := graphqlPost(handler, `mutation { addAuthor(name: "Ursula K. Le Guin") { id name } }`)
		Expect(w.Code).Should(Equal(http.StatusOK))
		Expect(decode(w).Data).Should(Equal(object{
			"addAuthor": object{"id": float64(4), "name": "Ursula K. Le Guin"},
		}))

		w = graphqlPost(handler, `{ authors { id name } }`)
		authors := decode(w).Data.(object)["authors"].(list)
		Expect(authors).Should(HaveLen(4))
		Expect(authors[3]).Should(Equal(object{"id": float64(4), "name": "Ursula K. Le Guin"}))
	})

	It("assigns distinct ids to concurrent mutations", func() {
		const n = 16
		var wg sync.WaitGroup
		ids := make(chan float64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				w := graphqlPost(handler, `mutation { addAuthor(name: "Anonymous") { id } }`)
				ids <- decode(w).Data.(object)["addAuthor"].(object)["id"].(float64)
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[float64]bool{}
		for id := range ids {
			Expect(seen).ShouldNot(HaveKey(id))
			seen[id] = true
		}
		Expect(seen).Should(HaveLen(n))
	})

	It("assigns request id and writes access log", func() {
		w := graphqlPost(handler, `{ authors { name } }`)
		requestID := w.Header().Get(server.RequestIDHeader)
		Expect(requestID).ShouldNot(BeEmpty())
		Expect(logs.String()).Should(ContainSubstring("request_id=" + requestID))
		Expect(logs.String()).Should(ContainSubstring("status=200"))
		Expect(logs.String()).Should(ContainSubstring("executing GraphQL operation"))
	})

	It("keeps request id from client", func() {
		r := httptest.NewRequest(http.MethodGet, server.Path+"?query=%7Bauthors%7Bname%7D%7D", nil)
		r.Header.Set(server.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		Expect(w.Code).Should(Equal(http.StatusOK))
		Expect(w.Header().Get(server.RequestIDHeader)).Should(Equal("abc-123"))
	})

	It("serves GraphiQL to browsers", func() {
		r := httptest.NewRequest(http.MethodGet, server.Path, nil)
		r.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		Expect(w.Code).Should(Equal(http.StatusOK))
		Expect(w.Body.String()).Should(ContainSubstring("GraphiQL"))
	})

	It("rejects mutation over GET", func() {
		r := httptest.NewRequest(http.MethodGet,
			server.Path+"?query=mutation%7BaddAuthor(name:%22X%22)%7Bid%7D%7D", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		Expect(w.Code).Should(Equal(http.StatusMethodNotAllowed))

		count, err := srv.Store().CountAuthors(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(count).Should(Equal(3))
	})

	It("only serves the GraphQL path", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		Expect(w.Code).Should(Equal(http.StatusNotFound))
	})

	Context("without seeding", func() {
		BeforeEach(func() {
			cfg.Store.Seed = false
		})

		It("starts empty", func() {
			w := graphqlPost(handler, `{ authors { id } books { id } }`)
			Expect(decode(w).Data).Should(Equal(object{
				"authors": list{},
				"books":   list{},
			}))
		})
	})

	Context("without operation cache", func() {
		BeforeEach(func() {
			cfg.Server.OperationCacheSize = 0
		})

		It("serves queries", func() {
			for i := 0; i < 2; i++ {
				w := graphqlPost(handler, `{ author(id: 3) { name } }`)
				Expect(decode(w).Data).Should(Equal(object{
					"author": object{"name": "Ted Chiang"},
				}))
			}
		})
	})

	Context("with SQLite store", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "server")
			Expect(err).ShouldNot(HaveOccurred())

			cfg.Store.Driver = config.DriverSQLite
			cfg.Store.DSN = filepath.Join(dir, "books.db")
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("keeps data across restarts", func() {
			w := graphqlPost(handler, `mutation { addBook(name: "Stories of Your Life", authorId: 3) { id } }`)
			Expect(decode(w).Data).Should(Equal(object{
				"addBook": object{"id": float64(9)},
			}))
			Expect(srv.Close()).Should(Succeed())

			var err error
			srv, err = server.New(context.Background(), cfg, logger)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(logs.String()).Should(ContainSubstring("skip seeding"))

			w = graphqlPost(srv.Handler(), `{ author(id: 3) { books { name } } }`)
			Expect(decode(w).Data).Should(Equal(object{
				"author": object{
					"books": list{
						object{"name": "Exhalation"},
						object{"name": "Blues People"},
						object{"name": "Stories of Your Life"},
					},
				},
			}))
		})
	})

	It("serves on a listener until the context is cancelled", func() {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ShouldNot(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Serve(ctx, listener)
		}()

		url := "http://" + listener.Addr().String() + server.Path
		resp, err := http.Post(url, "application/graphql", strings.NewReader("{ book(id: 1) { name } }"))
		Expect(err).ShouldNot(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).Should(Equal(http.StatusOK))

		var body response
		Expect(jsoniter.NewDecoder(resp.Body).Decode(&body)).Should(Succeed())
		Expect(body.Data).Should(Equal(object{"book": object{"name": "Liliths Brood"}}))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})

var _ = Describe("New", func() {
	It("fails for unreachable SQL store", func() {
		cfg := config.Default()
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.DSN = filepath.Join(os.TempDir(), "missing-dir-for-graphql-demo", "books.db")

		_, err := server.New(context.Background(), cfg, nil)
		Expect(err).Should(HaveOccurred())
	})

	It("fails for unsupported driver", func() {
		cfg := config.Default()
		cfg.Store.Driver = "mongodb"

		_, err := server.New(context.Background(), cfg, nil)
		Expect(err).Should(MatchError(`unsupported store driver "mongodb"`))
	})
})
