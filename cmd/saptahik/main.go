// Command saptahik downloads the current Economist print edition and
// writes it as a single EPUB file in the output directory.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/saptahik/internal/cache"
	"github.com/Adda-Baaj/saptahik/internal/config"
	"github.com/Adda-Baaj/saptahik/internal/ebook"
	"github.com/Adda-Baaj/saptahik/internal/fetcher"
	"github.com/Adda-Baaj/saptahik/internal/images"
	"github.com/Adda-Baaj/saptahik/internal/logger"
	"github.com/Adda-Baaj/saptahik/internal/parser"
	"github.com/Adda-Baaj/saptahik/internal/pipeline"
	"github.com/Adda-Baaj/saptahik/pkg/httpclient"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath       string
		selectorsPath string
		outputDir     string
		refresh       bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:           "saptahik",
		Short:         "Build an EPUB of the current Economist print edition",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			return run(cmd, cfg, selectorsPath, refresh)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config.yaml (default: ./config.yaml if present)")
	cmd.Flags().StringVar(&selectorsPath, "selectors", "selectors.yaml", "path to selector overrides")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory the epub is written to")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch the edition table of contents even if cached")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, selectorsPath string, refresh bool) error {
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}

	sel, err := config.LoadSelectors(selectorsPath)
	if err != nil {
		return err
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	client := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:      cfg.HTTP.Timeout,
		RetryCount:   cfg.HTTP.RetryCount,
		RetryWait:    cfg.HTTP.RetryWait,
		RetryMaxWait: cfg.HTTP.RetryMaxWait,
		UserAgent:    cfg.UserAgent,
	})

	f := fetcher.New(client, store, log)
	p := pipeline.New(pipeline.Options{
		Fetcher:    f,
		Parser:     parser.New(cfg.BaseURL, sel),
		Resolver:   images.New(f, cfg.Images.Dir, cfg.Images.MaxWidth, log),
		Builder:    ebook.New(cfg.Output.Dir, log),
		Logger:     log,
		EditionURL: cfg.EditionURL,
		TocTTL:     cfg.Cache.TocTTL,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outPath, err := p.Run(ctx, refresh)
	if err != nil {
		log.ErrorObj("edition build failed", "build_failed", map[string]any{"error": err.Error()})
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), outPath)
	return nil
}
