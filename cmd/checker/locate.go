package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/undertaker-go/blockdefect/pkg/block"
	"github.com/undertaker-go/blockdefect/pkg/cpp"
)

// locateOptions holds the flags for `checker locate`, which resolves a
// file:line:col position to the enclosing conditional block instead of
// running the full classifier over it.
type locateOptions struct {
	input     string
	line, col int
	debugTree bool
}

func newLocateCmd(log *logrus.Logger) *cobra.Command {
	o := locateOptions{}

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "resolve a source position to its enclosing conditional block",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(log)
		},
	}

	cmd.Flags().StringVar(&o.input, "input", "", "directive-dump JSON file for the source in question")
	cmd.Flags().IntVar(&o.line, "line", 0, "1-based line number to resolve")
	cmd.Flags().IntVar(&o.col, "col", 1, "1-based column to resolve")
	cmd.Flags().BoolVar(&o.debugTree, "debug-tree", false, "dump the whole block tree instead of just the resolved block")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		log.WithError(err).Warn("locate: failed to mark --input required")
	}
	if err := cmd.MarkFlagRequired("line"); err != nil {
		log.WithError(err).Warn("locate: failed to mark --line required")
	}

	return cmd
}

func (o *locateOptions) run(log *logrus.Logger) error {
	data, err := os.ReadFile(o.input)
	if err != nil {
		return errors.Wrapf(err, "locate: reading %q", o.input)
	}
	var in sourceInput
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrapf(err, "locate: parsing %q", o.input)
	}

	b := cpp.NewBuilder(block.Options{})
	cpp.Walk(b, in.Path, in.Directives)
	f := b.File()

	if o.debugTree {
		f.Dump(os.Stdout)
		return nil
	}

	found := f.BlockAt(o.line, o.col)
	if found == nil || found.IsRoot() {
		fmt.Printf("%s:%d:%d: not inside any conditional block\n", in.Path, o.line, o.col)
		return nil
	}

	fmt.Printf("%s:%d:%d: %s (%s), lines %d-%d, condition: %s\n",
		in.Path, o.line, o.col, f.DisplayName(found), found.Kind, found.LineStart, found.LineEnd, found.Expression())
	return nil
}
