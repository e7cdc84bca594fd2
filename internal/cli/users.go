package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usersRefresh bool

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users tasks can be assigned to",
	RunE:  runUsers,
}

func init() {
	usersCmd.Flags().BoolVar(&usersRefresh, "refresh", false, "Bypass the cache and fetch from the service")
}

func runUsers(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fetch := a.users.Users
	if usersRefresh {
		fetch = a.users.Refresh
	}
	list, err := fetch(cmd.Context())
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No users.")
		return nil
	}
	for _, u := range list {
		fmt.Printf("  %s%-6s%s %s\n", colorDim, u.ID, colorReset, u.Name)
	}
	return nil
}
