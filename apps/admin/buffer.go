package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

func (cli *commandLine) bufferCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buffer",
		Short: "Inspect or edit the runtime buffer of an attempt",
	}

	set := &cobra.Command{
		Use:   "set ATTEMPT_ID KEY=VALUE...",
		Short: "Set runtime values, eg: cmi.core.lesson_status=completed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attemptID := core.CleanString(args[0])
			if _, err := cli.repo.GetAttempt(cmd.Context(), attemptID); err != nil {
				return err
			}
			vals, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			if err = cli.buffer.Set(cmd.Context(), attemptID, vals); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cli.out, "%d value(s) set\n", len(vals))
			return err
		},
	}

	show := &cobra.Command{
		Use:   "show ATTEMPT_ID",
		Short: "Print the runtime values of an attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := cli.buffer.Get(cmd.Context(), core.CleanString(args[0]))
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(vals))
			for k := range vals {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if _, err = fmt.Fprintf(cli.out, "%s=%s\n", k, vals[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear ATTEMPT_ID",
		Short: "Delete the runtime values of an attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attemptID := core.CleanString(args[0])
			if !yes {
				ok, err := cli.confirm(fmt.Sprintf("Clear the runtime buffer of attempt %s?", attemptID))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			return cli.buffer.Clear(cmd.Context(), attemptID)
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(set, show, clearCmd)
	return cmd
}

func parseKeyValues(args []string) (scorm.Values, error) {
	vals := make(scorm.Values, len(args))
	for _, arg := range args {
		kv := strings.SplitN(arg, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, errors.Wrapf(errInvalidKeyVal, "%q", arg)
		}
		vals[strings.TrimSpace(kv[0])] = kv[1]
	}
	return vals, nil
}
