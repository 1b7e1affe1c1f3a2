// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command structviz renders the data structures of a Python file as an
// interactive 3D graph.
//
// Usage:
//
//	go run ./cmd/structviz program.py
//	go run ./cmd/structviz program.py -o graph.html
//	go run ./cmd/structviz program.py --json -o graph.json
//	go run ./cmd/structviz program.py --watch
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vizlab/structviz/services/viz/ast"
	"github.com/vizlab/structviz/services/viz/config"
	"github.com/vizlab/structviz/services/viz/graph"
	"github.com/vizlab/structviz/services/viz/render"
)

// debounceWindow coalesces bursts of filesystem events in watch mode.
// Editors often emit several write events per save.
const debounceWindow = 200 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	countStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type cliOptions struct {
	outPath    string
	jsonOutput bool
	watch      bool
	traceOut   bool
	debug      bool
	configPath string
}

func main() {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "structviz <file.py>",
		Short: "Visualize the data structures of a Python file in 3D",
		Long: `structviz parses a single Python source file, builds a graph of its
classes, functions, variables, container items, and call sites, and
renders it as an interactive 3D plotly figure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts)
		},
	}

	root.Flags().StringVarP(&opts.outPath, "out", "o", "", "output path (default: <input>.html, or stdout with --json)")
	root.Flags().BoolVar(&opts.jsonOutput, "json", false, "emit the serialized graph as JSON instead of an HTML figure")
	root.Flags().BoolVar(&opts.watch, "watch", false, "re-render whenever the input file changes")
	root.Flags().BoolVar(&opts.traceOut, "trace", false, "export OpenTelemetry spans to stdout")
	root.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.Flags().StringVar(&opts.configPath, "config", "", "render config file (default: structviz.config.yaml beside the input)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, inputPath string, opts *cliOptions) error {
	setupLogging(opts.debug)

	if opts.traceOut {
		shutdown, err := setupTracing()
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer shutdown()
	}

	cfg, err := loadConfig(inputPath, opts.configPath)
	if err != nil {
		return err
	}

	if err := renderOnce(ctx, inputPath, opts, cfg); err != nil {
		return err
	}

	if opts.watch {
		return watchLoop(ctx, inputPath, opts, cfg)
	}
	return nil
}

// loadConfig resolves the render config: explicit path wins, otherwise
// structviz.config.yaml next to the input file.
func loadConfig(inputPath, explicit string) (config.RenderConfig, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	return config.LoadBeside(inputPath)
}

// renderOnce runs the full pipeline: read, parse, build, lay out, render.
func renderOnce(ctx context.Context, inputPath string, opts *cliOptions, cfg config.RenderConfig) error {
	start := time.Now()

	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	parser := ast.NewPythonParser()
	parsed, err := parser.Parse(ctx, content, inputPath)
	if err != nil {
		if errors.Is(err, ast.ErrSyntax) {
			return fmt.Errorf("%s contains syntax errors: %w", inputPath, err)
		}
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}
	defer parsed.Close()

	builder := graph.NewBuilder()
	result, err := builder.Build(ctx, parsed)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	g := result.Graph

	var outPath string
	if opts.jsonOutput {
		outPath, err = writeGraphJSON(g, opts)
	} else {
		positions := render.Layout3D(g, layoutOptions(cfg))
		var fig *render.Figure
		fig, err = render.BuildFigure(g, positions, paletteFrom(cfg), cfg.Title)
		if err != nil {
			return fmt.Errorf("building figure: %w", err)
		}
		outPath, err = writeFigureHTML(fig, inputPath, opts)
	}
	if err != nil {
		return err
	}

	printSummary(g, outPath, time.Since(start))
	slog.Debug("render complete",
		slog.String("input", inputPath),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// layoutOptions merges config overrides onto the layout defaults.
func layoutOptions(cfg config.RenderConfig) render.LayoutOptions {
	opts := render.DefaultLayoutOptions()
	if cfg.Layout.Seed != nil {
		opts.Seed = *cfg.Layout.Seed
	}
	if cfg.Layout.Iterations > 0 {
		opts.Iterations = cfg.Layout.Iterations
	}
	if cfg.Layout.Spread > 0 {
		opts.Spread = cfg.Layout.Spread
	}
	return opts
}

// paletteFrom merges config color overrides onto the default palette.
// Unrecognized kind names in the config are ignored with a warning.
func paletteFrom(cfg config.RenderConfig) map[ast.Kind]string {
	palette := render.DefaultPalette()
	for name, color := range cfg.Palette {
		if !ast.KnownKind(name) {
			slog.Warn("Ignoring palette override for unknown kind", slog.String("kind", name))
			continue
		}
		palette[ast.Kind(name)] = color
	}
	return palette
}

// writeGraphJSON writes the serialized graph to --out, or stdout when no
// path is given.
func writeGraphJSON(g *graph.Graph, opts *cliOptions) (string, error) {
	out := os.Stdout
	outPath := "stdout"
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", opts.outPath, err)
		}
		defer f.Close()
		out, outPath = f, opts.outPath
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.ToSerializable()); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// writeFigureHTML writes the standalone HTML page and returns its path.
// Without --out the page lands next to the input, same base name.
func writeFigureHTML(fig *render.Figure, inputPath string, opts *cliOptions) (string, error) {
	outPath := opts.outPath
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outPath = base + ".html"
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	if err := fig.WriteHTML(out); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// printSummary prints per-kind node counts and the output location.
func printSummary(g *graph.Graph, outPath string, elapsed time.Duration) {
	counts := make(map[ast.Kind]int)
	for _, n := range g.Nodes() {
		counts[n.Kind]++
	}
	kinds := make([]ast.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var b strings.Builder
	b.WriteString(titleStyle.Render(g.ModuleKey()) + "\n")
	for _, k := range kinds {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			kindStyle.Render(fmt.Sprintf("%-10s", string(k))),
			countStyle.Render(fmt.Sprintf("%d", counts[k]))))
	}
	b.WriteString(fmt.Sprintf("  %s %s\n",
		kindStyle.Render(fmt.Sprintf("%-10s", "edges")),
		countStyle.Render(fmt.Sprintf("%d", g.EdgeCount()))))
	b.WriteString(dimStyle.Render(fmt.Sprintf("wrote %s in %s", outPath, elapsed.Round(time.Millisecond))))
	fmt.Fprintln(os.Stderr, b.String())
}

// watchLoop re-renders the input whenever it changes, until the context
// is cancelled.
func watchLoop(ctx context.Context, inputPath string, opts *cliOptions, cfg config.RenderConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors replace files
	// on save, which drops a direct file watch.
	dir := filepath.Dir(inputPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(inputPath)

	slog.Info("Watching for changes", slog.String("file", inputPath))

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			if err := renderOnce(ctx, inputPath, opts, cfg); err != nil {
				// Keep watching through transient errors such as a
				// half-saved file with syntax errors.
				fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", slog.String("error", err.Error()))
		}
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// setupTracing installs a stdout span exporter and returns a shutdown
// function that flushes pending spans.
func setupTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("Tracer shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}
