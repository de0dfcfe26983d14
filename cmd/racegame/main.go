package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/racegame"
	"justapengu.in/racegame/internal/catalog"
	"justapengu.in/racegame/internal/input"
	"justapengu.in/racegame/internal/scheduler"
	"justapengu.in/racegame/internal/settings"
)

func main() {
	var (
		configPath string
		debug      bool
	)

	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cfn := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		logger.Infof("Interrupted, stopping")
		cfn()
	}()

	err := run(ctx, configPath, os.Stdin, logger)
	cfn()

	if err != nil {
		logger.WithError(err).Fatal("Game stopped with error")
	}

	logger.Infof("Game stopped. Exiting")
}

// run returns rather than exiting so that deferred cleanup, such as closing
// the settings store, always happens.
func run(ctx context.Context, configPath string, stdin io.Reader, logger logrus.FieldLogger) error {
	config, err := racegame.ReadConfig(configPath)

	if err != nil {
		return err
	}

	cars, err := catalog.LoadDir(filepath.Join(config.Game.DataDirectory, config.CarSelect.CatalogDirectory))

	if err != nil {
		return errors.Wrap(err, "could not load car catalog")
	}

	store, err := settings.Open(filepath.Join(config.Game.DataDirectory, config.Game.SettingsFile))

	if err != nil {
		return errors.Wrap(err, "could not open settings")
	}

	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Error("Could not close settings")
		}
	}()

	ctx, cfn := context.WithCancel(ctx)
	defer cfn()

	reader := input.NewReader(stdin, logger)

	go func() {
		if err := reader.Run(ctx); err != nil {
			logger.WithError(err).Error("Could not read input")
		}
	}()

	game, err := racegame.NewGame(config, scheduler.New(scheduler.SystemClock{}), cars, store, racegame.NewLogSpawner(logger), reader, logger)

	if err != nil {
		return errors.Wrap(err, "could not initialise game")
	}

	logger.Infof("Loaded %d cars. Type left, right or confirm and press enter", len(cars))

	return game.Run(ctx)
}
