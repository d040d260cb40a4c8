package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// reportOptions holds the flags for `checker report`, a small query
// front-end over the JSON summary `checker check --summary` writes.
type reportOptions struct {
	summaryPath string
	query       string
}

func newReportCmd(log *logrus.Logger) *cobra.Command {
	o := reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "filter a checker check --summary file with a jq expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	cmd.Flags().StringVar(&o.summaryPath, "summary", "", "path to a JSON summary written by checker check --summary")
	cmd.Flags().StringVar(&o.query, "query", ".", "jq filter expression to apply to the summary")
	if err := cmd.MarkFlagRequired("summary"); err != nil {
		log.WithError(err).Warn("report: failed to mark --summary required")
	}

	return cmd
}

func (o *reportOptions) run() error {
	data, err := os.ReadFile(o.summaryPath)
	if err != nil {
		return errors.Wrapf(err, "report: reading %q", o.summaryPath)
	}

	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return errors.Wrapf(err, "report: parsing %q", o.summaryPath)
	}

	query, err := gojq.Parse(o.query)
	if err != nil {
		return errors.Wrapf(err, "report: parsing jq expression %q", o.query)
	}

	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return errors.Wrap(err, "report: evaluating jq expression")
		}
		out, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "report: marshaling result")
		}
		fmt.Println(string(out))
	}
}
