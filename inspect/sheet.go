// Package inspect implements cssdump subcommands: dumping what the restricted
// stylesheet engine makes of stylesheets, declarations and e-books.
package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"epubcss/arena"
	"epubcss/css"
	"epubcss/state"
)

// SheetOptions controls WriteSheet output.
type SheetOptions struct {
	// Sorted orders rules by selector in natural order instead of source
	// order.
	Sorted bool
	// Lint appends everything engine ignores.
	Lint bool
}

// WriteSheet writes rules of table followed by optional lint report for data.
func WriteSheet(w io.Writer, table *css.Table, data []byte, opts SheetOptions) error {
	rules := table.Rules()
	if opts.Sorted {
		rules = slices.Clone(rules)
		slices.SortStableFunc(rules, func(a, b css.Rule) int {
			switch {
			case natural.Less(a.Selector, b.Selector):
				return -1
			case natural.Less(b.Selector, a.Selector):
				return 1
			}
			return 0
		})
	}
	for _, r := range rules {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	if !opts.Lint {
		return nil
	}
	for _, warn := range css.Diagnose(data) {
		if _, err := fmt.Fprintf(w, "/* %s: %s */\n", warn.Kind, warn.Detail); err != nil {
			return err
		}
	}
	return nil
}

// parseFile reads stylesheet and parses it into arena sized from
// configuration.
func parseFile(env *state.LocalEnv, fname string) (*css.Table, []byte, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read stylesheet: %w", err)
	}
	p := css.NewParser(env.Logger(), css.WithCanaryCheck(env.Cfg.Style.VerifyCanaries), css.WithLint(env.Cfg.Style.Lint))
	a := arena.New(env.Cfg.Style.BookArenaCapacity)
	return p.Parse(data, a, fname), data, nil
}

// Sheet is the "sheet" subcommand action.
func Sheet(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Logger()

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no stylesheet specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	fname := cmd.Args().Get(0)

	table, data, err := parseFile(env, fname)
	if err != nil {
		return err
	}
	log.Info("Stylesheet parsed", zap.String("file", fname), zap.Int("rules", table.Len()))

	return WriteSheet(cmd.Root().Writer, table, data, SheetOptions{
		Sorted: cmd.Bool("sorted"),
		Lint:   cmd.Bool("lint"),
	})
}

// Inline is the "inline" subcommand action.
func Inline(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no declarations specified")
	}
	for _, decls := range cmd.Args().Slice() {
		if _, err := fmt.Fprintln(cmd.Root().Writer, css.ParseInline([]byte(decls))); err != nil {
			return err
		}
	}
	return nil
}

// Resolve is the "resolve" subcommand action.
func Resolve(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() < 2 {
		return fmt.Errorf("stylesheet and class list are required")
	}
	table, _, err := parseFile(env, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	for _, classes := range cmd.Args().Slice()[1:] {
		if _, err := fmt.Fprintf(cmd.Root().Writer, "%q: %s\n", classes, table.Resolve([]byte(classes))); err != nil {
			return err
		}
	}
	return nil
}
