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
	"runtime"

	"github.com/mitchellh/cli"
)

// versionCommand prints the build version.
type versionCommand struct {
	ui cli.Ui
}

var _ cli.Command = (*versionCommand)(nil)

func (c *versionCommand) Help() string {
	return "Usage: graphql-demo version\n\n  Prints the version of graphql-demo."
}

func (c *versionCommand) Synopsis() string {
	return "Prints the version"
}

func (c *versionCommand) Run(args []string) int {
	c.ui.Output("graphql-demo " + version + " (" + runtime.Version() + ")")
	return 0
}
