package bootstrap

import (
	"fmt"
	"io"
	"os"

	"ceflog/cef"
	"ceflog/config"
	"ceflog/ingest"
	"ceflog/metrics"

	"go.uber.org/zap"
)

// AppOptions configures NewApp.
type AppOptions struct {
	// ConfigPath is an explicit config file; empty searches the defaults.
	ConfigPath string
	// Override adjusts the loaded configuration, typically from CLI flags.
	Override func(*config.Config)
	// LogOutput receives console log entries. Defaults to os.Stderr.
	LogOutput io.Writer
	// Clock overrides the configured timezone clock.
	Clock cef.Clock
}

// App holds the components shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
	Clock  cef.Clock
	Parser *ingest.FileParser
}

// NewApp loads configuration, builds the logger and the file parser.
func NewApp(opts AppOptions) (*App, error) {
	cfg, err := InitConfig(opts.ConfigPath, opts.Override)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, sugar, err := InitLogger(cfg.Log, out, cfg.Output.Color)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = cef.ClockIn(cfg.Location())
	}

	parser, err := ingest.NewFileParser(ingest.Options{
		Clock:          clock,
		CacheSize:      cfg.Parser.CacheSize,
		MaxLineSize:    cfg.Parser.MaxLineSize,
		SkipBlankLines: cfg.Parser.SkipBlankLines,
		Logger:         sugar,
	})
	if err != nil {
		return nil, err
	}

	sugar.Debugw("Config loaded",
		"timezone", cfg.Location().String(),
		"output_format", cfg.Output.Format,
		"cache_size", cfg.Parser.CacheSize)

	return &App{
		Config: cfg,
		Logger: logger,
		Sugar:  sugar,
		Clock:  clock,
		Parser: parser,
	}, nil
}

// Shutdown writes the metrics textfile when configured and flushes the
// logger.
func (a *App) Shutdown() error {
	var err error
	if path := a.Config.Metrics.Textfile; path != "" {
		if err = metrics.WriteTextfile(path); err != nil {
			a.Sugar.Warnw("Failed to write metrics", "path", path, "error", err)
			err = fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	_ = a.Logger.Sync()
	return err
}
