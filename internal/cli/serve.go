package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/devserver"
)

var (
	serveAddr  string
	serveDB    string
	serveToken string
	serveSeed  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local task service for development",
	Long: "Serves /tasks/list, /tasks/listusers, /tasks/create, /tasks/update and /tasks/delete\n" +
		"from a local SQLite database, so the board can be used without the public service.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "devserver.db", "SQLite database for tasks and users")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Required AuthToken header (default $"+config.DefaultTokenEnv+")")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Fill an empty database with sample users and tasks")
}

func runServe(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	logger := log.New()
	if debugFlag {
		logger.SetLevel(log.DebugLevel)
	}

	s, err := openStore(serveDB)
	if err != nil {
		return fmt.Errorf("open %s: %w", serveDB, err)
	}
	defer s.Close()

	if serveSeed {
		if err := devserver.Seed(s); err != nil {
			return err
		}
	}

	token := serveToken
	if token == "" {
		token = config.Service{}.Token()
	}
	if token == "" {
		logger.Warn("no token configured; accepting every request")
	}

	e := devserver.New(s, token, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", serveAddr).Info("dev task service listening")
		errCh <- e.Start(serveAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(ctx)
}
