package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/app"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// initializeApplication sets up logging and assembles the engine for the
// current run.
func initializeApplication(startTime time.Time) (*app.App, error) {
	if err := logging.Setup(viper.GetInt(keys.DebugLevel), viper.GetString(keys.LogFile)); err != nil {
		fmt.Fprintf(os.Stderr, "could not set up logging, proceeding without: %v\n", err)
	}

	logging.I("CoomerDL (PID: %d) started at: %v",
		os.Getpid(), startTime.Format("2006-01-02 15:04:05.00 MST"))
	logging.D("Database: %s | Download dir: %s",
		viper.GetString(keys.DBPath), viper.GetString(keys.DownloadDir))

	a, err := app.New()
	if err != nil {
		return nil, fmt.Errorf("error initializing CoomerDL: %w", err)
	}
	return a, nil
}
