package cli

import (
	"fmt"
	"os"

	"github.com/imkarma/taskboard/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskboard in the current directory",
	Long:  "Creates a .taskboard/ directory with default config and database.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if already initialized.
	if _, err := os.Stat(boardDirName); err == nil {
		return fmt.Errorf("taskboard already initialized in this directory (%s/ exists)", boardDirName)
	}

	if err := os.MkdirAll(boardDirName, 0755); err != nil {
		return fmt.Errorf("create %s: %w", boardDirName, err)
	}

	// Write default config.
	cfg := config.DefaultConfig()
	if err := config.Save(boardPath("config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Create database by opening store (migration runs automatically).
	store, err := openStore(boardPath("taskboard.db"))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	store.Close()

	fmt.Printf("Initialized taskboard in %s/\n", boardDirName)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Printf("  1. Put your token in .env as %s=...\n", config.DefaultTokenEnv)
	fmt.Printf("     (or point %s at a local service: taskboard serve --seed)\n", boardPath("config.yaml"))
	fmt.Println("  2. Run: taskboard board")
	fmt.Println("  3. Run: taskboard ui")

	return nil
}
