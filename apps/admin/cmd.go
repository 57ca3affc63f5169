package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password cannot be empty")
)

func newRootCmd(app *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Moodle gateway admin: probe the Moodle site and manage users & enrolments",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newSiteInfoCmd(app),
		newCoursesCmd(app),
		newAddUserCmd(app),
		newEnrolCmd(app),
	)
	return rootCmd
}

func newSiteInfoCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "siteinfo",
		Short: "Check the Moodle token & web service by fetching the site info",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := app.site.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

func newCoursesCmd(app *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List Moodle courses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := app.courses.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, payload)
			}

			var courses []struct {
				ID        int    `json:"id"`
				Shortname string `json:"shortname"`
				Fullname  string `json:"fullname"`
			}
			if err = json.Unmarshal(payload, &courses); err != nil {
				return errors.Wrap(err, "decoding courses")
			}
			for _, c := range courses {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", c.ID, c.Shortname, c.Fullname)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print Moodle's payload as JSON")
	return cmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(bytes.TrimSpace(pwd)) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func printJSON(cmd *cobra.Command, payload json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return errors.Wrap(err, "formatting JSON")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
