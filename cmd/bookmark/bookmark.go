// Package bookmark implements the "bookmark" subcommand group for
// managing folder access grants.
package bookmark

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/engine"
)

// Command creates the bookmark command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage folder access bookmarks",
		Long:  "Grant, list and revoke durable access bookmarks for folders outside the app's private storage.",
	}

	cmd.AddCommand(
		addCommand(settings),
		listCommand(settings),
		removeCommand(settings),
	)
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "add [folder]",
		Short: "Grant access to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Scopes.Grant(folder, nil); err != nil {
				return err
			}
			fmt.Printf("Bookmarked %s\n", folder)
			return nil
		},
	}
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bookmarked folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries := eng.Scopes.Entries()
			if len(entries) == 0 {
				fmt.Println("No bookmarks")
				return nil
			}
			for _, e := range entries {
				fmt.Println(e.NormalizedPath)
			}
			return nil
		},
	}
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [folder]",
		Short: "Revoke access to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			eng, err := engine.New(settings)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Scopes.Revoke(folder); err != nil {
				return err
			}
			fmt.Printf("Removed bookmark for %s\n", folder)
			return nil
		},
	}
}
