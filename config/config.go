// Package config loads tool settings from an optional HCL file and then from
// LEVELKIT_* environment variables, which take precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/milk9111/levelkit/content"
	"github.com/milk9111/levelkit/data"
	"github.com/milk9111/levelkit/grid"
)

// Config is the resolved settings for the content tools.
type Config struct {
	Grid        grid.Dimensions
	PlaneWidth  float64
	PlaneHeight float64

	// ContentDir is read from disk when it holds a manifest; otherwise the
	// embedded content is used.
	ContentDir string
	RulesDir   string

	RequiredCategories []string
	ReportAll          bool

	LogLevel  string
	LogFormat string
}

func Default() Config {
	return Config{
		Grid:               grid.DefaultDimensions,
		PlaneWidth:         100,
		PlaneHeight:        100,
		ContentDir:         "data",
		RulesDir:           data.RulesDir,
		RequiredCategories: append([]string(nil), content.DefaultCategories...),
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

type gridBlock struct {
	Width  *int `hcl:"width,optional"`
	Height *int `hcl:"height,optional"`
}

type planeBlock struct {
	Width  *float64 `hcl:"width,optional"`
	Height *float64 `hcl:"height,optional"`
}

type fileConfig struct {
	Grid               *gridBlock  `hcl:"grid,block"`
	Plane              *planeBlock `hcl:"plane,block"`
	ContentDir         *string     `hcl:"content_dir,optional"`
	RulesDir           *string     `hcl:"rules_dir,optional"`
	RequiredCategories *[]string   `hcl:"required_categories,optional"`
	ReportAll          *bool       `hcl:"report_all,optional"`
	LogLevel           *string     `hcl:"log_level,optional"`
	LogFormat          *string     `hcl:"log_format,optional"`
}

// envConfig mirrors Config with flat fields. It is filled from the current
// values first, so variables that are not set leave them alone.
type envConfig struct {
	GridWidth          int      `env:"LEVELKIT_GRID_WIDTH"`
	GridHeight         int      `env:"LEVELKIT_GRID_HEIGHT"`
	PlaneWidth         float64  `env:"LEVELKIT_PLANE_WIDTH"`
	PlaneHeight        float64  `env:"LEVELKIT_PLANE_HEIGHT"`
	ContentDir         string   `env:"LEVELKIT_CONTENT_DIR"`
	RulesDir           string   `env:"LEVELKIT_RULES_DIR"`
	RequiredCategories []string `env:"LEVELKIT_REQUIRED_CATEGORIES" envSeparator:","`
	ReportAll          bool     `env:"LEVELKIT_REPORT_ALL"`
	LogLevel           string   `env:"LEVELKIT_LOG_LEVEL"`
	LogFormat          string   `env:"LEVELKIT_LOG_FORMAT"`
}

// Load returns the defaults, overlaid with the file at path (skipped when
// path is empty) and then with the environment. The file is HCL, or JSON
// when its name ends in .json.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.applyFile(path, src); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(filename string, src []byte) error {
	var f fileConfig
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return fmt.Errorf("config: decode %s: %w", filename, err)
	}
	if f.Grid != nil {
		setIf(&c.Grid.Width, f.Grid.Width)
		setIf(&c.Grid.Height, f.Grid.Height)
	}
	if f.Plane != nil {
		setIf(&c.PlaneWidth, f.Plane.Width)
		setIf(&c.PlaneHeight, f.Plane.Height)
	}
	setIf(&c.ContentDir, f.ContentDir)
	setIf(&c.RulesDir, f.RulesDir)
	setIf(&c.RequiredCategories, f.RequiredCategories)
	setIf(&c.ReportAll, f.ReportAll)
	setIf(&c.LogLevel, f.LogLevel)
	setIf(&c.LogFormat, f.LogFormat)
	return nil
}

func (c *Config) applyEnv() error {
	e := envConfig{
		GridWidth:          c.Grid.Width,
		GridHeight:         c.Grid.Height,
		PlaneWidth:         c.PlaneWidth,
		PlaneHeight:        c.PlaneHeight,
		ContentDir:         c.ContentDir,
		RulesDir:           c.RulesDir,
		RequiredCategories: c.RequiredCategories,
		ReportAll:          c.ReportAll,
		LogLevel:           c.LogLevel,
		LogFormat:          c.LogFormat,
	}
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	c.Grid = grid.Dimensions{Width: e.GridWidth, Height: e.GridHeight}
	c.PlaneWidth, c.PlaneHeight = e.PlaneWidth, e.PlaneHeight
	c.ContentDir, c.RulesDir = e.ContentDir, e.RulesDir
	c.RequiredCategories = e.RequiredCategories
	c.ReportAll = e.ReportAll
	c.LogLevel, c.LogFormat = e.LogLevel, e.LogFormat
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c Config) validate() error {
	if !c.Grid.Valid() {
		return fmt.Errorf("config: grid %s: %w", c.Grid, grid.ErrInvalidDimensions)
	}
	if !(c.PlaneWidth > 0) || !(c.PlaneHeight > 0) {
		return fmt.Errorf("config: plane %gx%g: %w", c.PlaneWidth, c.PlaneHeight, grid.ErrInvalidDimensions)
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}

// Layout is the grid laid over the configured plane, centered on the origin.
func (c Config) Layout() (grid.Layout, error) {
	l, err := grid.NewLayout(c.Grid, c.PlaneWidth, c.PlaneHeight)
	if err != nil {
		return grid.Layout{}, err
	}
	return l.Centered(), nil
}

// Source is the content set named by ContentDir. Rules come from RulesDir
// inside the same tree; an empty RulesDir disables rule scripts.
func (c Config) Source() content.Source {
	return content.Source{
		FS:           data.FS(c.ContentDir),
		LevelsDir:    data.LevelsDir,
		ManifestPath: data.ManifestPath,
		RulesDir:     c.RulesDir,
	}
}

func (c Config) Validator() content.Validator {
	return content.Validator{
		Dims:               c.Grid,
		RequiredCategories: c.RequiredCategories,
		ReportAll:          c.ReportAll,
	}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger builds a logger for the configured level and format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, ok := logLevels[strings.ToLower(c.LogLevel)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
