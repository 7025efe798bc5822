package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/lms/core"
)

func (cli *commandLine) attemptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempt",
		Short: "Manage attempts",
	}

	var userID string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an attempt for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("user", userID); err != nil {
				return err
			}
			attempt, err := cli.svc.StartAttempt(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return cli.printJSON(attempt)
		},
	}
	create.Flags().StringVar(&userID, "user", "", "the learner's user id")

	show := &cobra.Command{
		Use:   "show ATTEMPT_ID",
		Short: "Print a stored attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attempt, err := cli.repo.GetAttempt(cmd.Context(), core.CleanString(args[0]))
			if err != nil {
				return err
			}
			return cli.printJSON(attempt)
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}
