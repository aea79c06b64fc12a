package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/futig/report-writer/internal/pkg/logger"
	"github.com/futig/report-writer/pkg/reportclient"
	"go.uber.org/zap"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, streams the body and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		baseURL     = fs.String("url", "http://localhost:8080", "report writer base URL")
		topic       = fs.String("topic", "", "report topic")
		outline     = fs.String("outline", "", "outline entries separated by '|'")
		words       = fs.Int("words", 3000, "target word count for the whole body")
		mode        = fs.String("mode", "full", "generation mode: full or sections")
		style       = fs.String("style", "", "style mode: ai or standard")
		datasets    = fs.String("datasets", "", "comma-separated knowledge dataset ids")
		concurrency = fs.Int("concurrency", 3, "sections generated at once in sections mode")
		out         = fs.String("out", "", "write the assembled body to this file instead of stdout")
		logLevel    = fs.String("log-level", "warn", "log level")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	lg, err := logger.New(*logLevel, "local")
	if err != nil {
		fmt.Fprintln(stderr, "failed to set up logger:", err)
		return exitUsage
	}
	defer func() { _ = lg.Sync() }()

	req := reportclient.Request{
		Topic:               strings.TrimSpace(*topic),
		Outline:             splitList(*outline, "|"),
		WordCount:           *words,
		StyleMode:           *style,
		KnowledgeDatasetIDs: splitList(*datasets, ","),
	}
	if req.Topic == "" || len(req.Outline) == 0 {
		fmt.Fprintln(stderr, "both -topic and -outline are required")
		fs.Usage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := reportclient.New(*baseURL, lg, reportclient.WithConcurrency(*concurrency))
	o := output{path: *out, stdout: stdout, stderr: stderr, logger: lg}

	switch *mode {
	case "full":
		live := *out == ""
		res, err := client.StreamFull(ctx, req, func(piece string) {
			if live {
				fmt.Fprint(stdout, piece)
			}
		})
		lg.Info("knowledge", zap.String("status", res.Knowledge.Status), zap.Int("records", res.Knowledge.RecordCount))
		if live {
			// Already on stdout.
			fmt.Fprintln(stdout)
			if err != nil {
				return o.fail("", err)
			}
			return exitOK
		}
		if err != nil {
			return o.fail(res.Text, err)
		}
		return o.finish(res.Text)
	case "sections":
		res, err := client.StreamSections(ctx, req, func(completed, total int) {
			fmt.Fprintf(stderr, "\r已完成 %d/%d 节", completed, total)
		})
		fmt.Fprintln(stderr)
		if err != nil {
			return o.fail(res.Text, err)
		}
		return o.finish(res.Text)
	default:
		fmt.Fprintf(stderr, "unknown mode %q\n", *mode)
		return exitUsage
	}
}

type output struct {
	path   string
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func (o output) finish(text string) int {
	if err := o.write(text); err != nil {
		fmt.Fprintln(o.stderr, "failed to write output:", err)
		return exitFailed
	}
	return exitOK
}

// fail keeps whatever text arrived before the error.
func (o output) fail(text string, err error) int {
	o.logger.Error("generation failed", zap.Error(err))
	if text != "" {
		if werr := o.write(text); werr != nil {
			o.logger.Error("failed to write partial output", zap.Error(werr))
		}
	}
	fmt.Fprintln(o.stderr, "generation failed:", err)
	return exitFailed
}

func (o output) write(text string) error {
	if o.path == "" {
		_, err := fmt.Fprintln(o.stdout, text)
		return err
	}
	return os.WriteFile(o.path, []byte(text), 0o644)
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
