package main

import (
	"fmt"

	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/lms/apps/api/echo"
	"github.com/trezcool/lms/core/scorm"
)

// tokenCommand signs a learner token, for local development against the API.
func (cli *commandLine) tokenCommand() *cobra.Command {
	var learner scorm.Learner
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a learner JWT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("user", learner.ID); err != nil {
				return err
			}
			token, err := echoapi.GenerateToken(echoapi.NewLearnerClaims(learner, cli.conf), cli.conf)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cli.out, token)
			return err
		},
	}
	cmd.Flags().StringVar(&learner.ID, "user", "", "the learner's user id")
	cmd.Flags().StringVar(&learner.Username, "username", "", "the learner's username")
	cmd.Flags().StringVar(&learner.Email, "email", "", "the learner's email, used for notifications")
	cmd.Flags().StringVar(&learner.Name, "name", "", "the learner's name")
	return cmd
}
