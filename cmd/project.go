package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List, switch and create projects under the data root",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Projects(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range res.Projects {
				mark := " "
				if p == res.Active {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, p)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch NAME",
		Short: "Make NAME the active project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().SwitchProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active project: %s\n", args[0])
			return nil
		},
	})

	var moveFrom string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := opts.client().CreateProject(cmd.Context(), args[0], moveFrom)
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project: %s\n", name)
			return nil
		},
	}
	create.Flags().StringVar(&moveFrom, "move-from", "", "Move the images and annotations of this project into the new one")
	cmd.AddCommand(create)

	return cmd
}
