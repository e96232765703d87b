// Command signals evaluates a thread snapshot file offline and prints the
// computed signals as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/services"
	"github.com/lorrc/support-signals/internal/infrastructure/logging"
)

var views = []string{"dashboard", "stages", "heatmap", "queue-health", "risk-radar", "alerts"}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "signals:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("signals", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "-", "snapshot file (JSON or YAML), or - for stdin")
	format := fs.String("format", "", "input format: json or yaml (default: from file extension, json for stdin)")
	asOfFlag := fs.String("as-of", "", "reference time (RFC 3339); overrides the snapshot's asOf")
	view := fs.String("view", "dashboard", "output: "+strings.Join(views, ", "))
	logLevel := fs.String("log-level", "warn", "log level written to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !isKnownView(*view) {
		return fmt.Errorf("unknown view %q", *view)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       *logLevel,
		Format:      "text",
		Output:      stderr,
		ServiceName: "signals-cli",
	})

	// 1. Read the snapshot
	doc, err := readSnapshot(*input, *format, stdin)
	if err != nil {
		return err
	}

	asOf := doc.AsOf
	if *asOfFlag != "" {
		t, err := time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			return fmt.Errorf("invalid -as-of: %w", err)
		}
		asOf = &t
	}

	// 2. Run the engine without a thread store
	signalService := services.NewSignalService(nil, nil, nil, services.SignalConfig{}, logger)
	dashboard, err := signalService.Evaluate(ctx, ports.EvaluateParams{
		Threads: domain.ThreadsFromDocuments(doc.Threads),
		KPI:     doc.KPI,
		AsOf:    asOf,
	})
	if err != nil {
		return err
	}

	// 3. Print the requested view
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(selectView(dashboard, *view))
}

func readSnapshot(path, format string, stdin io.Reader) (*domain.SnapshotDocument, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	if format == "" {
		format = formatFromPath(path)
	}

	var doc domain.SnapshotDocument
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return &doc, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func isKnownView(view string) bool {
	for _, v := range views {
		if v == view {
			return true
		}
	}
	return false
}

func selectView(d *domain.Dashboard, view string) any {
	switch view {
	case "stages":
		return d.StageDistribution
	case "heatmap":
		return d.Heatmap
	case "queue-health":
		return d.QueueHealth
	case "risk-radar":
		return d.RiskRadar
	case "alerts":
		return d.Alerts
	default:
		return d
	}
}
