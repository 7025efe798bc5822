package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/trezcool/lms/core/scorm"
)

func (cli *commandLine) commitCommand() *cobra.Command {
	var (
		attemptID string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the runtime buffer of an attempt on behalf of its owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("attempt", attemptID); err != nil {
				return err
			}
			learner, err := cli.owner(cmd.Context(), attemptID)
			if err != nil {
				return err
			}

			if dryRun {
				preview, err := cli.svc.Preview(cmd.Context(), learner, attemptID)
				if err != nil {
					return err
				}
				return cli.printPreview(preview)
			}

			res, err := cli.svc.Commit(cmd.Context(), learner, attemptID)
			if err != nil {
				return err
			}
			return cli.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&attemptID, "attempt", "", "the attempt id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without writing it")
	return cmd
}

func (cli *commandLine) printPreview(p scorm.Preview) error {
	diff, err := attemptDiff(p.Before, p.After)
	if err != nil {
		return err
	}
	if diff == "" {
		diff = "no changes\n"
	}

	comp := p.Computation
	status := string(comp.Status)
	if status == "" {
		status = "(unchanged)"
	}
	_, err = fmt.Fprintf(cli.out,
		"%sstatus: %s (rule: %s)\nobjectives: %d (score aggregated: %t)\ninteractions: %d\n",
		diff, status, comp.StatusRule, len(comp.Objectives.Objectives), comp.Objectives.ScoreAggregated, len(comp.Interactions),
	)
	return err
}

func attemptDiff(before, after scorm.Attempt) (string, error) {
	a, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshalling attempt")
	}
	b, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshalling attempt")
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: "stored",
		ToFile:   "after commit",
		Context:  1,
	})
}
