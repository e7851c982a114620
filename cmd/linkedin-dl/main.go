package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	linkedindl "github.com/ytget/linkedin-dl"
	"github.com/ytget/linkedin-dl/client"
	"github.com/ytget/linkedin-dl/internal/config"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/types"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: cannot load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	maxAttempts int
	wait        float64
	limit       float64
	quality     string
	configPath  string
	rateLimit   string
	verbose     bool
	noProgress  bool
}

func newFlagSet(o *options, defaults config.Config, stderr io.Writer) *flag.FlagSet {
	fset := flag.NewFlagSet("linkedin-dl", flag.ContinueOnError)
	fset.SetOutput(stderr)

	fset.IntVar(&o.maxAttempts, "m", defaults.MaxAttempts, "Maximum number of attempts in case of connection error")
	fset.IntVar(&o.maxAttempts, "max_attempts", defaults.MaxAttempts, "Same as -m")
	fset.Float64Var(&o.wait, "w", defaults.Wait.Seconds(), "Seconds to wait between attempts")
	fset.Float64Var(&o.wait, "wait", defaults.Wait.Seconds(), "Same as -w")
	fset.Float64Var(&o.limit, "l", defaults.Limit.Seconds(), "Maximum seconds to capture, 0 for the whole video")
	fset.Float64Var(&o.limit, "limit", defaults.Limit.Seconds(), "Same as -l")
	fset.StringVar(&o.quality, "q", defaults.Quality.String(), "Rendition bitrate, one of "+qualityList())
	fset.StringVar(&o.quality, "quality", defaults.Quality.String(), "Same as -q")
	fset.StringVar(&o.configPath, "c", "", "YAML config file supplying defaults")
	fset.StringVar(&o.configPath, "config", "", "Same as -c")
	fset.StringVar(&o.rateLimit, "rate-limit", "", "Download rate limit (e.g., 2MiB/s, 500KiB/s)")
	fset.BoolVar(&o.verbose, "v", false, "Log debug output of every component")
	fset.BoolVar(&o.verbose, "verbose", false, "Same as -v")
	fset.BoolVar(&o.noProgress, "no-progress", false, "Disable progress output")

	fset.Usage = func() {
		fmt.Fprintln(stderr, "Usage: linkedin-dl [flags] URL FILE")
		fmt.Fprintln(stderr, "\nDownload a LinkedIn video stream to FILE.")
		fmt.Fprintln(stderr, "\nFlags:")
		fset.PrintDefaults()
	}
	return fset
}

func qualityList() string {
	parts := make([]string, len(types.Qualities))
	for i, q := range types.Qualities {
		parts[i] = q.String()
	}
	return strings.Join(parts, ", ")
}

// parseArgs parses flags and positionals in any order.
func parseArgs(fset *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fset.Parse(rest); err != nil {
			return nil, err
		}
		rest = fset.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var o options
	fset := newFlagSet(&o, config.Default(), stderr)
	positional, err := parseArgs(fset, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if len(positional) != 2 {
		fset.Usage()
		return exitUsage
	}
	sourceURL, dest := strings.TrimSpace(positional[0]), positional[1]

	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.LoadFromFile(o.configPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	// Flags given on the command line win over file and environment.
	if set["m"] || set["max_attempts"] {
		cfg.MaxAttempts = o.maxAttempts
	}
	if set["w"] || set["wait"] {
		cfg.Wait = seconds(o.wait)
	}
	if set["l"] || set["limit"] {
		cfg.Limit = seconds(o.limit)
	}
	if set["q"] || set["quality"] {
		q, err := types.ParseQuality(o.quality)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid quality %q: must be one of %s\n", o.quality, qualityList())
			return exitUsage
		}
		cfg.Quality = q
	}
	if set["rate-limit"] {
		cfg.RateLimit = parseRate(o.rateLimit)
	}
	if !cfg.Quality.Valid() {
		fmt.Fprintf(stderr, "Error: invalid quality %d: must be one of %s\n", cfg.Quality, qualityList())
		return exitUsage
	}
	if o.verbose {
		cfg.Log.Level = "DEBUG"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	l, err := logger.CreateLoggerFromConfig(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if o.verbose {
		l.EnableAll()
	}
	logger.SetGlobalLogger(l)

	req, err := linkedindl.NewRequest(sourceURL, dest,
		linkedindl.WithMaxAttempts(cfg.MaxAttempts),
		linkedindl.WithRetryDelay(cfg.Wait),
		linkedindl.WithTimeLimit(cfg.Limit),
		linkedindl.WithQuality(cfg.Quality),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	d := linkedindl.New().
		WithLogger(l).
		WithRateLimit(cfg.RateLimit).
		WithClientConfig(client.Config{
			Timeout:      cfg.HTTP.Timeout,
			StallTimeout: cfg.HTTP.StallTimeout,
			Retries:      cfg.HTTP.Retries,
			UserAgent:    cfg.HTTP.UserAgent,
			ProxyURL:     cfg.HTTP.Proxy,
		})
	if !o.noProgress {
		d = d.WithProgress(func(p linkedindl.Progress) {
			switch {
			case p.TotalSize > 0:
				_, _ = fmt.Fprintf(stderr, "Downloaded %.1f%%\r", p.Percent)
			case p.MediaDuration > 0:
				_, _ = fmt.Fprintf(stderr, "Downloaded %d bytes of %s video\r", p.DownloadedSize, p.MediaDuration.Round(time.Second))
			default:
				_, _ = fmt.Fprintf(stderr, "Downloaded %d bytes\r", p.DownloadedSize)
			}
		})
	}

	out, err := d.Run(ctx, req)
	if !o.noProgress {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	_, _ = fmt.Fprintf(stdout, "Saved: %s (%d bytes, %s, %d attempt(s))\n",
		out.Destination, out.BytesWritten, out.StoppedReason, out.Attempts)
	return exitOK
}

// parseRate parses strings like "2MiB/s", "500KiB/s" into bytes per second.
func parseRate(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0
	}
	mul := int64(1)
	s = strings.TrimSuffix(s, "/S")
	s = strings.TrimSpace(s)
	sfx := ""
	for _, suf := range []string{"KIB", "MIB", "GIB", "KB", "MB", "GB"} {
		if strings.HasSuffix(s, suf) {
			sfx = suf
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	s = strings.TrimSpace(s)
	var val float64
	_, err := fmt.Sscanf(s, "%f", &val)
	if err != nil || val <= 0 {
		return 0
	}
	switch sfx {
	case "KIB":
		mul = 1024
	case "MIB":
		mul = 1024 * 1024
	case "GIB":
		mul = 1024 * 1024 * 1024
	case "KB":
		mul = 1000
	case "MB":
		mul = 1000 * 1000
	case "GB":
		mul = 1000 * 1000 * 1000
	}
	return int64(val * float64(mul))
}
