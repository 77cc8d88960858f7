package main

import (
	"context"
	"fmt"

	"github.com/gition/gition/internal/config"
	"github.com/gition/gition/internal/gitapi"
	"github.com/spf13/cobra"
)

func backendClient() (*gitapi.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return gitapi.NewClient(cfg.Backend.URL, cfg.Backend.UserID), nil
}

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories on the git backend",
	}
	cmd.AddCommand(newRepoListCmd())
	cmd.AddCommand(newRepoStatusCmd())
	cmd.AddCommand(newRepoCloneCmd())
	cmd.AddCommand(newRepoPullCmd())
	cmd.AddCommand(newRepoBranchesCmd())
	cmd.AddCommand(newRepoDeleteCmd())
	return cmd
}

func newRepoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List repositories known to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient()
			if err != nil {
				return err
			}

			list, err := client.ListRepos(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("%d repositories (%d public, %d private)\n", list.Total, list.Public, list.Private)
			for _, r := range list.Repos {
				visibility := "public"
				if r.Private {
					visibility = "private"
				}
				fmt.Printf("  %-40s %s\n", r.FullName, visibility)
			}
			return nil
		},
	}
}

func newRepoStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <repo>",
		Short: "Show whether a repository has a working copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient()
			if err != nil {
				return err
			}

			cloned, err := client.Status(context.Background(), args[0])
			if err != nil {
				return err
			}
			if cloned {
				fmt.Printf("%s: cloned\n", args[0])
			} else {
				fmt.Printf("%s: not cloned\n", args[0])
			}
			return nil
		},
	}
}

func newRepoCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <repo> <clone-url>",
		Short: "Clone a repository onto the backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient()
			if err != nil {
				return err
			}

			state, err := client.Clone(context.Background(), args[1], args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], state)
			return nil
		},
	}
}

func newRepoPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <repo>",
		Short: "Pull the latest changes for a cloned repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient()
			if err != nil {
				return err
			}

			if err := client.Pull(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: pulled\n", args[0])
			return nil
		},
	}
}

func newRepoBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches <repo>",
		Short: "List branches and the checked-out branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient()
			if err != nil {
				return err
			}

			list, err := client.ListBranches(context.Background(), args[0])
			if err != nil {
				return err
			}

			for _, b := range list.Branches {
				marker := " "
				if b.IsCurrent {
					marker = "*"
				}
				fmt.Printf("%s %-30s %s %s\n", marker, b.Name, b.CommitSHA, b.CommitMessage)
			}
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

func newRepoDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <repo>",
		Short: "Remove a repository's working copy from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("deleting a working copy is irreversible; re-run with --force")
			}

			client, err := backendClient()
			if err != nil {
				return err
			}

			if err := client.DeleteRepo(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}
