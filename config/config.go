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

// Package config loads the server configuration from an HCL file.
//
// All attributes are optional. A missing file section keeps the values of Default.
//
//	server {
//	  address              = ":5000"
//	  max_body_size        = "10MiB"
//	  graphiql             = true
//	  pretty               = false
//	  operation_cache_size = 512
//	  shutdown_timeout     = "5s"
//	}
//
//	log {
//	  level  = "info"
//	  format = "text"
//	}
//
//	store {
//	  driver = "sqlite3"
//	  dsn    = env("BOOKS_DSN", "file:books.db")
//	  seed   = true
//	}
//
//	seed {
//	  author "Ted Chiang" {
//	    books = ["Exhalation"]
//	  }
//	}
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/gabedeko/graphql-demo/bookstore"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the configuration of the server.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Store  StoreConfig

	// Seed replaces bookstore.DefaultSeed when it is not nil.
	Seed *bookstore.Seed
}

// ServerConfig configures the HTTP server and the GraphQL handler.
type ServerConfig struct {
	Address            string
	MaxBodySize        uint64
	GraphiQL           bool
	Pretty             bool
	OperationCacheSize int
	ShutdownTimeout    time.Duration
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the repository backend.
type StoreConfig struct {
	Driver string
	DSN    string
	Seed   bool
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:            ":5000",
			MaxBodySize:        10 << 20,
			GraphiQL:           true,
			OperationCacheSize: 512,
			ShutdownTimeout:    5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Seed:   true,
		},
	}
}

// SeedData returns the records to be loaded into an empty store.
func (c *Config) SeedData() *bookstore.Seed {
	if c.Seed != nil {
		return c.Seed
	}
	return bookstore.DefaultSeed()
}

// Validate reports every problem in c.
func (c *Config) Validate() error {
	var result *multierror.Error

	if len(c.Server.Address) == 0 {
		result = multierror.Append(result, errors.New("server.address must not be empty"))
	}
	if c.Server.MaxBodySize == 0 {
		result = multierror.Append(result, errors.New("server.max_body_size must be positive"))
	}
	if c.Server.OperationCacheSize < 0 {
		result = multierror.Append(result, errors.Errorf(
			"server.operation_cache_size must not be negative, got %d", c.Server.OperationCacheSize))
	}
	if c.Server.ShutdownTimeout < 0 {
		result = multierror.Append(result, errors.Errorf(
			"server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout))
	}

	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		result = multierror.Append(result, errors.Errorf("log.level %q is unknown", c.Log.Level))
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		result = multierror.Append(result, errors.Errorf(
			"log.format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.Log.Format))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if len(c.Store.DSN) == 0 {
			result = multierror.Append(result, errors.Errorf(
				"store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		result = multierror.Append(result, errors.Errorf("store.driver %q is unsupported", c.Store.Driver))
	}

	if c.Seed != nil {
		for i, author := range c.Seed.Authors {
			if len(strings.TrimSpace(author.Name)) == 0 {
				result = multierror.Append(result, errors.Errorf("seed author #%d has no name", i+1))
			}
			for _, book := range author.Books {
				if len(strings.TrimSpace(book)) == 0 {
					result = multierror.Append(result, errors.Errorf(
						"seed author %q has a book without name", author.Name))
				}
			}
		}
	}

	return result.ErrorOrNil()
}

// NewLogger creates the root logger described by c.
func (c LogConfig) NewLogger(name string, output io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.Level),
		JSONFormat: c.Format == LogFormatJSON,
		Output:     output,
	})
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(src, path)
}

// Parse decodes an HCL configuration and validates the result. filename is only used in error
// messages.
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, "parse config")
	}

	defaults := Default()
	parsed := hclFile{
		Server: &hclServer{
			Address:            defaults.Server.Address,
			MaxBodySize:        humanize.IBytes(defaults.Server.MaxBodySize),
			GraphiQL:           defaults.Server.GraphiQL,
			Pretty:             defaults.Server.Pretty,
			OperationCacheSize: defaults.Server.OperationCacheSize,
			ShutdownTimeout:    defaults.Server.ShutdownTimeout.String(),
		},
		Log: &hclLog{
			Level:  defaults.Log.Level,
			Format: defaults.Log.Format,
		},
		Store: &hclStore{
			Driver: defaults.Store.Driver,
			DSN:    defaults.Store.DSN,
			Seed:   defaults.Store.Seed,
		},
	}

	if diags := gohcl.DecodeBody(file.Body, evalContext(), &parsed); diags.HasErrors() {
		return nil, errors.Wrap(diags, "decode config")
	}

	config, err := parsed.config()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", filename)
	}
	return config, nil
}

// hclFile is the top-level structure of a configuration file.
type hclFile struct {
	Server *hclServer `hcl:"server,block"`
	Log    *hclLog    `hcl:"log,block"`
	Store  *hclStore  `hcl:"store,block"`
	Seed   *hclSeed   `hcl:"seed,block"`
}

type hclServer struct {
	Address            string `hcl:"address,optional"`
	MaxBodySize        string `hcl:"max_body_size,optional"`
	GraphiQL           bool   `hcl:"graphiql,optional"`
	Pretty             bool   `hcl:"pretty,optional"`
	OperationCacheSize int    `hcl:"operation_cache_size,optional"`
	ShutdownTimeout    string `hcl:"shutdown_timeout,optional"`
}

type hclLog struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

type hclStore struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
	Seed   bool   `hcl:"seed,optional"`
}

type hclSeed struct {
	Authors []*hclSeedAuthor `hcl:"author,block"`
}

type hclSeedAuthor struct {
	Name  string   `hcl:"name,label"`
	Books []string `hcl:"books,optional"`
}

// config converts the decoded file into a Config.
func (f *hclFile) config() (*Config, error) {
	var result *multierror.Error

	maxBodySize, err := humanize.ParseBytes(f.Server.MaxBodySize)
	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "server.max_body_size"))
	}

	shutdownTimeout, err := time.ParseDuration(f.Server.ShutdownTimeout)
	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "server.shutdown_timeout"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Address:            f.Server.Address,
			MaxBodySize:        maxBodySize,
			GraphiQL:           f.Server.GraphiQL,
			Pretty:             f.Server.Pretty,
			OperationCacheSize: f.Server.OperationCacheSize,
			ShutdownTimeout:    shutdownTimeout,
		},
		Log: LogConfig{
			Level:  strings.ToLower(f.Log.Level),
			Format: strings.ToLower(f.Log.Format),
		},
		Store: StoreConfig{
			Driver: f.Store.Driver,
			DSN:    f.Store.DSN,
			Seed:   f.Store.Seed,
		},
	}

	if f.Seed != nil {
		seed := &bookstore.Seed{
			Authors: make([]bookstore.SeedAuthor, 0, len(f.Seed.Authors)),
		}
		for _, author := range f.Seed.Authors {
			seed.Authors = append(seed.Authors, bookstore.SeedAuthor{
				Name:  author.Name,
				Books: author.Books,
			})
		}
		config.Seed = seed
	}

	return config, nil
}

// evalContext provides functions to expressions in the configuration file.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":       envFunc,
			"lower":     stdlib.LowerFunc,
			"upper":     stdlib.UpperFunc,
			"trimspace": stdlib.TrimSpaceFunc,
		},
	}
}

// envFunc returns the value of an environment variable. When the variable is unset, it returns the
// optional second argument or an empty string.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{
			Name: "name",
			Type: cty.String,
		},
	},
	VarParam: &function.Parameter{
		Name: "default",
		Type: cty.String,
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		if value, ok := os.LookupEnv(args[0].AsString()); ok {
			return cty.StringVal(value), nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return cty.StringVal(""), nil
	},
})
