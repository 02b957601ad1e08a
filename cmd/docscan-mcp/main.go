// Package main is the docscan-mcp binary: an MCP server over stdio by
// default, and a headless batch scanner with the scan command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/scanner"
	"github.com/ironsheep/docscan-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	appName = "docscan-mcp"

	// Global flags.
	flagLogLevel    = "log-level"
	flagTessdata    = "tessdata"
	flagConcurrency = "concurrency"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "%s %s\n", appName, Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	return &cli.App{
		Name:    appName,
		Usage:   "find, flatten and clean up photographed documents",
		Version: Version,
		Description: "Without a command the server speaks MCP over stdin/stdout. " +
			"Configure it in your MCP client.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "log level: debug, info, warn or error (logs go to stderr)",
				Value:   "info",
				EnvVars: []string{"DOCSCAN_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    flagTessdata,
				Usage:   "directory holding Tesseract language data",
				EnvVars: []string{"TESSDATA_PREFIX"},
			},
			&cli.IntFlag{
				Name:  flagConcurrency,
				Usage: "maximum pages scanned at once in batch operations",
				Value: scanner.DefaultBatchConcurrency,
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve MCP over stdin/stdout (the default)",
				Action: serveAction,
			},
			scanCommand(),
		},
	}
}

func serveAction(c *cli.Context) error {
	logger, err := newLogger(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Name:             appName,
		Version:          Version,
		Logger:           logger,
		BatchConcurrency: c.Int(flagConcurrency),
		OCR:              ocr.Engine{TessdataPrefix: c.String(flagTessdata)},
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", zap.Error(err))
		return err
	}
	return nil
}
