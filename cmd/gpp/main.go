package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/gimura/gpp/internal/config"
	"github.com/gimura/gpp/internal/logging"
	"github.com/gimura/gpp/internal/output"
	"github.com/gimura/gpp/internal/preprocessor"
	"github.com/gimura/gpp/internal/source"
)

type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(fs.Output(), "Usage: gpp [flags] <namespace:file>")
		fs.PrintDefaults()
	}
}

// parseArgs merges the config file, the environment and the command line,
// in that order of precedence from lowest to highest.
func parseArgs(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("gpp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs)

	var defines, namespaces listFlag
	configPath := fs.String("config", "", "YAML config file")
	start := fs.String("start", "", "directive start operator (default \"//!\")")
	out := fs.String("o", "", "write output to file instead of stdout")
	numbered := fs.Bool("n", false, "prefix output lines with their number")
	logLevel := fs.String("log", "", "log level: debug, info, warn or error")
	fs.Var(&defines, "D", "define NAME=value (repeatable)")
	fs.Var(&namespaces, "ns", "register namespace name=location (repeatable)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *start != "" {
		cfg.StartOperator = *start
	}
	if *out != "" {
		cfg.Output = *out
	}
	if *numbered {
		cfg.Numbered = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	for _, d := range defines {
		name, value := preprocessor.ParseDefine(d)
		cfg.Defines[name] = value
	}
	for _, n := range namespaces {
		name, location, err := config.ParseNamespace(n)
		if err != nil {
			return nil, err
		}
		cfg.Namespaces[name] = location
	}
	switch fs.NArg() {
	case 0:
	case 1:
		entry, err := config.ParseEntry(fs.Arg(0))
		if err != nil {
			return nil, err
		}
		cfg.Entry = entry
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected a single entry, got %d", fs.NArg())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLoader(cfg *config.Config) (*source.Loader, error) {
	var opts []source.Option
	s3 := source.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}
	if s3.Enabled() {
		client, err := source.NewObjectStore(s3)
		if err != nil {
			return nil, err
		}
		opts = append(opts, source.WithObjectStore(client))
	}
	return source.NewLoader(opts...)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	loader, err := newLoader(cfg)
	if err != nil {
		return "", err
	}

	pp := preprocessor.New(preprocessor.Options{
		StartOperator: cfg.StartOperator,
		Defines:       cfg.Defines,
		Logger:        logger,
	})
	names := make([]string, 0, len(cfg.Namespaces))
	for name := range cfg.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src, err := loader.Load(ctx, cfg.Namespaces[name])
		if err != nil {
			return "", fmt.Errorf("namespace %s: %w", name, err)
		}
		logger.Debug("loaded namespace", "namespace", name, "location", cfg.Namespaces[name], "files", src.Len())
		pp.AddSource(name, src)
	}

	text, err := pp.Preprocess(cfg.Entry.Namespace, cfg.Entry.File)
	if err != nil {
		return "", err
	}
	if cfg.Numbered {
		text = output.Format(text)
	}
	return text, nil
}

func emit(cfg *config.Config, text string, stdout io.Writer, logger *slog.Logger) error {
	text += "\n"
	if cfg.Output == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	written, err := output.WriteIfChanged(cfg.Output, text)
	if err != nil {
		return err
	}
	if !written {
		logger.Info("output unchanged", "path", cfg.Output)
	}
	return nil
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stderr, level)

	text, err := run(context.Background(), cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := emit(cfg, text, os.Stdout, logger); err != nil {
		log.Fatal(err)
	}
}
