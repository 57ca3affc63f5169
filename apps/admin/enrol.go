package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/course"
)

func newEnrolCmd(app *app) *cobra.Command {
	var (
		username                 string
		userID, courseID, roleID int
	)
	cmd := &cobra.Command{
		Use:   "enrol",
		Short: "Enrol a user, by username or id, in a course",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enr, err := app.courses.Enrol(cmd.Context(), course.EnrolRequest{
				Username: username,
				UserID:   core.FlexInt(userID),
				CourseID: core.FlexInt(courseID),
				RoleID:   core.FlexInt(roleID),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enrolled user %d in course %d (role %d)\n", enr.UserID, enr.CourseID, enr.RoleID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "the user's username")
	cmd.Flags().IntVar(&userID, "userid", 0, "the user's id (takes precedence over --username)")
	cmd.Flags().IntVar(&courseID, "courseid", 0, "the course id")
	cmd.Flags().IntVar(&roleID, "roleid", 0, "the role id (default: configured student role)")
	_ = cmd.MarkFlagRequired("courseid")
	return cmd
}
