package main

import (
	"github.com/ilinks-dev/ilinks/internal/config"
	"github.com/ilinks-dev/ilinks/internal/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		log := logging.New(cfg.LogLevel)

		conn, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}
		closeDB(conn, log)

		log.Info("migrations applied")
		return nil
	},
}
