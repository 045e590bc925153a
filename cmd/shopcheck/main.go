// shopcheck runs the storefront scenarios against BASE_URL and publishes a
// report to the artifact store.
//
// Usage:
//
//	shopcheck [-browser chrome|firefox|edge] [-scenarios checkout,sort-name-desc] [-install] [-list]
//
// Exit status is 1 when any scenario fails and 2 on startup errors or when
// no browser could be launched.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/driver"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/report"
	"github.com/kuitang/storefront-e2e/internal/runner"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	fs := flag.NewFlagSet("shopcheck", flag.ExitOnError)
	overrides := config.RegisterFlags(fs)
	scenarios := fs.String("scenarios", "", "Comma separated scenarios to run (default all)")
	install := fs.Bool("install", false, "Install the Playwright driver and browser before running")
	list := fs.Bool("list", false, "List scenarios and exit")
	_ = fs.Parse(os.Args[1:])

	if *list {
		for _, s := range scenario.All() {
			fmt.Printf("%-16s %s\n", s.Name, s.Description)
		}
		return
	}

	selected, err := scenario.Select(*scenarios)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	cfg := config.MustLoadConfig(*overrides)
	if err := obs.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	cfg.PrintStartupSummary()

	code := run(cfg, selected, *install)
	_ = obs.Close()
	os.Exit(code)
}

func run(cfg *config.Config, selected []scenario.Scenario, install bool) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	logger := obs.Pkg("shopcheck")

	if install {
		kind, err := driver.ParseKind(cfg.Browser)
		if err != nil {
			logger.Error("invalid browser", "error", err)
			return 2
		}
		logger.Info("installing browsers", "browser", kind)
		if err := driver.InstallBrowsers(kind); err != nil {
			logger.Error("browser install failed", "error", err)
			return 2
		}
	}

	store, err := artifacts.Open(ctx, cfg)
	if err != nil {
		logger.Error("artifact store unavailable", "error", err)
		return 2
	}

	rep, err := runner.New(cfg, store, nil).Run(ctx, selected)
	if err != nil {
		logger.Error("report not published", "error", err)
	}
	fmt.Print(rep.Markdown())

	if rep.Failed() || err != nil {
		return 1
	}
	if counts := rep.Counts(); counts[report.StatusPassed] == 0 && counts[report.StatusSkipped] > 0 {
		logger.Error("no scenario ran; install browsers with -install")
		return 2
	}
	return 0
}
