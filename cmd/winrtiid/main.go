// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Command winrtiid prints the signatures and interface identifiers of
// runtime type expressions, and checks identifiers assigned elsewhere against
// the derived ones.
//
// Usage:
//
//	winrtiid [--types file.yaml] iid <type-expr>...
//	winrtiid [--types file.yaml] verify --expect <guid> <type-expr>
//	winrtiid [--types file.yaml] list
package main

import (
	"fmt"
	"os"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/metadata"
	"github.com/dblohm7/wingrt/winrt"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "winrtiid",
		Usage: "compute runtime type signatures and interface identifiers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "types",
				Usage: "YAML `FILE` of type descriptions to add to the built-in set",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log diagnostics to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("verbose") {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			com.SetLogger(l)
			return nil
		},
		Commands: []*cli.Command{
			iidCommand(),
			verifyCommand(),
			listCommand(),
		},
	}
}

func loadTypes(c *cli.Context) (*metadata.DB, error) {
	db := metadata.Default()
	path := c.String("types")
	if path == "" {
		return db, nil
	}
	user, err := metadata.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return db.Extend(user), nil
}

func iidCommand() *cli.Command {
	return &cli.Command{
		Name:      "iid",
		Usage:     "Print the interface identifier and signature of each type expression",
		ArgsUsage: "<type-expr>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("no type expression provided", 2)
			}
			db, err := loadTypes(c)
			if err != nil {
				return err
			}
			for _, expr := range c.Args().Slice() {
				iid, sig, err := db.IID(expr)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Fprintf(c.App.Writer, "%v  %s\n", iid, sig)
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check an externally assigned identifier against the derived one",
		ArgsUsage: "<type-expr>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "expect",
				Usage:    "the assigned `GUID`",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one type expression is required", 2)
			}
			assigned, err := wingrt.GUIDFromString(c.String("expect"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			db, err := loadTypes(c)
			if err != nil {
				return err
			}
			derived, sig, err := db.IID(c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if *derived != com.IID(assigned) {
				mismatch := &winrt.IIDMismatchError{Signature: sig, Derived: *derived, Assigned: com.IID(assigned)}
				return cli.Exit(mismatch.Error(), 1)
			}
			fmt.Fprintf(c.App.Writer, "ok  %v  %s\n", derived, sig)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the known types",
		Action: func(c *cli.Context) error {
			db, err := loadTypes(c)
			if err != nil {
				return err
			}
			for _, name := range db.Names() {
				t, _ := db.Lookup(name)
				if t.Arity > 0 {
					name = fmt.Sprintf("%s`%d", name, t.Arity)
				}
				guid := "-"
				if iid := t.IID(); iid != nil {
					guid = iid.String()
				}
				fmt.Fprintf(c.App.Writer, "%-14s %-38s %s\n", t.Kind, guid, name)
			}
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
