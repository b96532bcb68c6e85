package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmorales/etlwatch/internal/alert"
	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/pipeline"
	"github.com/jmorales/etlwatch/internal/warehouse"
	"github.com/jmorales/etlwatch/pkg/types"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "etlwatch error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch args[1] {
	case "check":
		return runCheck(args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	load := fs.Bool("load", false, "Load passing datasets into the warehouse")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configPath == "" {
		return fmt.Errorf("missing required flag: --config")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	runner := pipeline.New(cfg)

	if *load {
		if cfg.Warehouse == nil {
			return fmt.Errorf("--load requires a warehouse block in the config")
		}
		loader, err := warehouse.Open(cfg.Warehouse.DSN)
		if err != nil {
			return err
		}
		defer loader.Close()
		runner = runner.WithWarehouse(loader)
	}

	if cfg.Alert != nil {
		publisher := alert.NewPublisher(*cfg.Alert)
		defer publisher.Close()
		runner = runner.WithAlerter(publisher)
	}

	result := runner.Run(context.Background())
	printResult(result)
	return nil
}

func printResult(result *types.RunResult) {
	fmt.Printf("Run %s in %s, %d records across %d sources\n",
		result.Status, result.Duration.Round(time.Millisecond), result.TotalRecords, len(result.Sources))

	for _, src := range result.Sources {
		fmt.Printf("  %-24s %-14s records=%d", src.Source, src.Status, src.Records)
		if src.Loaded > 0 {
			fmt.Printf(" loaded=%d", src.Loaded)
		}
		if src.Error != "" {
			fmt.Printf(" error=%q", src.Error)
		}
		fmt.Println()

		if src.Report != nil {
			for _, f := range src.Report.Findings() {
				if f.Column != "" {
					fmt.Printf("    [%s] %s: %s\n", f.Severity, f.Column, f.Message)
				} else {
					fmt.Printf("    [%s] %s\n", f.Severity, f.Message)
				}
			}
		}
	}

	if len(result.Segments) > 0 {
		fmt.Printf("RFM segmentation: %d customers\n", len(result.Segments))
		perSegment := make(map[string]int)
		for _, s := range result.Segments {
			perSegment[s.Segment]++
		}
		for _, name := range []string{"Champions", "Loyal", "Recent", "At Risk", "Hibernating"} {
			if n := perSegment[name]; n > 0 {
				fmt.Printf("  %-12s %d\n", name, n)
			}
		}
	}

	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printUsage() {
	fmt.Print(`etlwatch - multi-source extraction and data quality checks

Usage:
  etlwatch check --config <path> [--load]

Commands:
  check     Extract configured sources and run quality checks
  help      Show this help message
`)
}
