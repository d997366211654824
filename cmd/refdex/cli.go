package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/crawl"
)

// Server serves the question endpoint until shut down.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Config   *refdex.Config
	Logger   *slog.Logger
	Nodes    refdex.NodeService
	Runs     refdex.RunService
	Crawler  *crawl.Crawler
	Resolver refdex.Resolver
	Server   Server
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"c" default:"refdex.yaml" help:"Path to YAML config file"`
	DB      string `help:"SQLite database path (overrides db_path)"`
	Verbose bool   `short:"v" help:"Log fetches, model calls and resolutions"`

	Crawl   CrawlCmd   `cmd:"" help:"Crawl the reference site and update descriptions and keywords"`
	Ask     AskCmd     `cmd:"" help:"Find reference pages relevant to a question"`
	Serve   ServeCmd   `cmd:"" help:"Serve the question endpoint over HTTP"`
	Export  ExportCmd  `cmd:"" help:"Export the reference tree as XML or Markdown"`
	Show    ShowCmd    `cmd:"" help:"Show a stored reference page"`
	History HistoryCmd `cmd:"" help:"List recent crawl runs"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	IndexURL    string `arg:"" optional:"" name:"index-url" help:"Index page URL (defaults to index_url)"`
	Concurrency int    `short:"n" help:"Concurrent fetch and model call limit (overrides crawl.concurrency)"`
	Browser     bool   `help:"Render pages with headless Chrome"`
	NoProgress  bool   `help:"Disable the progress bar"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question about the API reference"`
	JSON     bool   `help:"Print the resolution as JSON"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	Format string `short:"f" enum:"xml,markdown" default:"xml" help:"Output format (xml, markdown)"`
	Out    string `short:"o" help:"Output file for xml (default stdout) or directory for markdown"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	URL string `arg:"" help:"Reference page URL"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of runs to show"`
}
