package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	appbootstrap "github.com/wolfman30/slot-watch/internal/app/bootstrap"
	appconfig "github.com/wolfman30/slot-watch/internal/config"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

type syncRunner interface {
	Run(ctx context.Context, trigger syncer.Trigger) syncer.Result
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if cfg.StoreBackend == "" || cfg.StoreBackend == "memory" {
		logger.Warn("sync lambda running with the memory store; snapshots will not outlive the invocation")
	}

	app, err := appbootstrap.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("failed to assemble app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) (syncer.Result, error) {
		return handle(ctx, app.Runner, evt, logger)
	})
}

// handle runs one sync per scheduled event. A failed sync is returned as an
// error so the invocation counts as failed; skipped runs succeed.
func handle(ctx context.Context, runner syncRunner, evt events.CloudWatchEvent, logger *logging.Logger) (syncer.Result, error) {
	logger.Info("scheduled sync invoked",
		"event_id", evt.ID,
		"source", evt.Source,
		"detail_type", evt.DetailType,
	)
	res := runner.Run(ctx, syncer.TriggerLambda)
	if !res.OK {
		return res, errors.New("sync failed: " + res.Reason)
	}
	return res, nil
}
