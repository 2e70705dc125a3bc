// Package command содержит команды утилиты parkctl для обслуживания кассы.
//
//	parkctl printer ports
//	parkctl printer scan bluetooth|serial [--port /dev/ttyUSB0]
//	parkctl printer test bluetooth|serial [--port /dev/ttyUSB0]
//	parkctl fee --type Sedán --entry 2024-05-10T08:00:00Z [--exit ...]
//	parkctl password hash
//	parkctl profile dump [-p profile.yaml]
//	parkctl db migrate
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/pkg/config"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

var (
	profilePath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "parkctl",
	Short: "Service utility for the parking POS",
	Long: `Service utility for the parking POS.
Finds and tests thermal printers, calculates parking fees with the
configured tariffs, hashes operator passwords and applies database
migrations without starting the API server.`,
	SilenceUsage: true,
}

// Execute разбирает аргументы и запускает подходящую команду
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&profilePath, "profile", "p", os.Getenv("PROFILE_PATH"), "YAML profile with tariffs and print settings",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level",
	)
}

// loadConfig читает конфигурацию сервера из окружения и .env
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func newLogger() logger.Logger {
	return logger.NewConsole(logLevel)
}
