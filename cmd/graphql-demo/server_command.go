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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/gabedeko/graphql-demo/config"
	"github.com/gabedeko/graphql-demo/server"
)

// serverCommand runs the GraphQL server until it receives one of signals.
type serverCommand struct {
	ui      cli.Ui
	signals []os.Signal
}

var _ cli.Command = (*serverCommand)(nil)

func (c *serverCommand) Help() string {
	helpText := `
Usage: graphql-demo server [options]

  Starts the GraphQL server. The endpoint is served at /graphql, which also
  hosts the GraphiQL console for browsers.

Options:

  -config=path       HCL configuration file. Defaults apply when omitted.

  -address=addr      Address to listen on. Overrides server.address.

  -log-level=level   One of trace, debug, info, warn or error. Overrides
                     log.level.
`
	return strings.TrimSpace(helpText)
}

func (c *serverCommand) Synopsis() string {
	return "Starts the GraphQL server"
}

func (c *serverCommand) Run(args []string) int {
	var configPath, address, logLevel string

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.Usage = func() { c.ui.Error(c.Help()) }
	flags.StringVar(&configPath, "config", "", "")
	flags.StringVar(&address, "address", "", "")
	flags.StringVar(&logLevel, "log-level", "", "")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := c.loadConfig(configPath)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	if len(address) > 0 {
		cfg.Server.Address = address
	}
	if len(logLevel) > 0 {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	if err := cfg.Validate(); err != nil {
		c.ui.Error(err.Error())
		return 1
	}

	logger := cfg.Log.NewLogger("graphql-demo", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), c.signals...)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		return 1
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

func (c *serverCommand) loadConfig(path string) (*config.Config, error) {
	if len(path) == 0 {
		return config.Default(), nil
	}
	return config.Load(path)
}
