package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const (
	keychainService = "gition"
	keychainAccount = "github-token"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the GitHub token",
	}
	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthShowCmd())
	cmd.AddCommand(newAuthClearCmd())
	return cmd
}

func newAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store a GitHub token in the system keychain",
		Long: `Store a GitHub personal access token in the system keychain.

The token is stored using your operating system's native keychain:
- macOS: Keychain
- Linux: Secret Service (GNOME Keyring, KWallet)
- Windows: Credential Manager

The gateway uses it to fetch open issues and pull requests. A token with
read-only repo scope is sufficient.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("Enter your GitHub token: ")
			reader := bufio.NewReader(os.Stdin)
			token, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("token must not be empty")
			}

			if err := keyring.Set(keychainService, keychainAccount, token); err != nil {
				return fmt.Errorf("failed to store token in keychain: %w", err)
			}
			fmt.Println("Token stored in the system keychain.")
			return nil
		},
	}
}

func newAuthShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show whether a GitHub token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := keyring.Get(keychainService, keychainAccount)
			if err != nil {
				if err == keyring.ErrNotFound {
					fmt.Println("No token stored. Use 'gition auth set' first.")
					return nil
				}
				return fmt.Errorf("failed to read keychain: %w", err)
			}
			fmt.Printf("Token stored (%d characters, ends in %s)\n", len(token), tail(token, 4))
			return nil
		},
	}
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the GitHub token from the keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := keyring.Delete(keychainService, keychainAccount)
			if err != nil {
				if err == keyring.ErrNotFound {
					fmt.Println("No token stored.")
					return nil
				}
				return fmt.Errorf("failed to remove token: %w", err)
			}
			fmt.Println("Token removed from the keychain.")
			return nil
		},
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
