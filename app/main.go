package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hnimtadd/craft-redis/internal/app"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "redis-server",
		Usage: "a small redis server with master/replica bootstrap",
		Flags: app.Flags(),
		Action: func(c *cli.Context) error {
			config, err := app.LoadConfig(c)
			if err != nil {
				return err
			}
			return app.New(config).Run(c.Context)
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		stop()
		logrus.WithError(err).Fatal("redis-server exited")
	}
}
