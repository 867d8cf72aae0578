package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-renewal/internal/intelligence"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/locate"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/overlay"
	"github.com/a3tai/mcp-pdf-renewal/internal/renewal"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = session.DefaultMaxFileSize

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "MCP_PDF"

	// listSeparator splits list values given through environment variables
	listSeparator = ";"
)

// Config holds all configuration for the renewal server and CLI
type Config struct {
	// Server configuration
	Mode string `validate:"oneof=stdio server"`
	Host string
	Port int

	// Directories
	PDFDirectory    string `validate:"required"`
	OutputDirectory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string `validate:"oneof=debug info warn error"`
	MaxFileSize int64  `validate:"gt=0"` // Maximum PDF file size in bytes

	// Replacement
	Needles      []string `validate:"min=1,dive,required"`
	Replacement  string   `validate:"required"`
	MatchMode    string   `validate:"oneof=any all"`
	OnMiss       string   `validate:"oneof=fallback skip"`
	FallbackPage int      `validate:"gte=1"`

	// Overlay
	FontName         string  `validate:"required"`
	FontSize         float64 `validate:"gt=0"`
	Leading          float64 `validate:"gte=0"`
	Padding          float64 `validate:"gte=0"`
	FallbackX        float64 `validate:"gte=0"`
	FallbackBaseline float64 `validate:"gte=0"`
	FallbackWidth    float64 `validate:"gt=0"`

	// Classification and labels
	ScanWindow    int `validate:"gte=1"`
	FallbackPages int `validate:"gte=1"`
	LabelPatterns []string
	RulesFile     string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	opts := renewal.DefaultOptions()
	return &Config{
		Mode:             ModeStdio,
		Host:             DefaultHost,
		Port:             DefaultPort,
		PDFDirectory:     currentDir,
		Version:          "1.0.0",
		ServerName:       "mcp-pdf-renewal",
		LogLevel:         DefaultLogLevel,
		MaxFileSize:      DefaultMaxFileSize,
		Needles:          opts.Needles,
		Replacement:      opts.Replacement,
		MatchMode:        string(opts.MatchMode),
		OnMiss:           string(opts.OnMiss),
		FallbackPage:     opts.FallbackPage,
		FontName:         opts.Overlay.FontName,
		FontSize:         opts.Overlay.FontSize,
		Leading:          opts.Overlay.Leading,
		Padding:          opts.Overlay.Padding,
		FallbackX:        opts.Overlay.FallbackX,
		FallbackBaseline: opts.Overlay.FallbackBaseline,
		FallbackWidth:    opts.Overlay.FallbackWidth,
		ScanWindow:       intelligence.DefaultScanWindow,
		FallbackPages:    intelligence.DefaultFallbackPages,
	}
}

// LoadFromFlags parses the process command line and returns a configuration
func LoadFromFlags() (*Config, error) {
	if err := checkVersionFlag(os.Args[1:]); err != nil {
		return nil, err
	}

	fs := pflag.CommandLine
	RegisterFlags(fs, DefaultConfig())
	fs.Usage = usage(fs)
	return Load(fs, os.Args[1:])
}

// Load parses args into fs and builds the configuration from flags,
// environment and an optional config file, in that order of precedence
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlagSet(fs)
}

// RegisterFlags defines every configuration flag on fs with defaults from cfg
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("config", "", "Optional configuration file (toml, yaml or json)")
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing input PDF files")
	fs.String("outdir", cfg.OutputDirectory, "Directory for renewed PDFs (defaults to --dir)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")

	fs.StringArray("needle", cfg.Needles, "Text identifying the clause to replace (repeatable)")
	fs.String("replacement", cfg.Replacement, "Replacement clause drawn over the located text")
	fs.String("match", cfg.MatchMode, "How several needles combine: 'any' or 'all'")
	fs.String("onmiss", cfg.OnMiss, "When the clause is not found: 'fallback' draws at a fixed position, 'skip' leaves the form unchanged")
	fs.Int("fallbackpage", cfg.FallbackPage, "1-based page of the new form used for the fallback position")

	fs.String("font", cfg.FontName, "Fallback font for the replacement text")
	fs.Float64("fontsize", cfg.FontSize, "Fallback font size in points")
	fs.Float64("leading", cfg.Leading, "Extra space between replacement lines in points")
	fs.Float64("padding", cfg.Padding, "Margin added around the covered region in points")
	fs.Float64("fallbackx", cfg.FallbackX, "Left edge of the fallback position in points")
	fs.Float64("fallbacky", cfg.FallbackBaseline, "First baseline of the fallback position in points from the page bottom")
	fs.Float64("fallbackwidth", cfg.FallbackWidth, "Maximum line width at the fallback position in points")

	fs.Int("scanwindow", cfg.ScanWindow, "Leading pages searched for the signature page")
	fs.Int("fallbackpages", cfg.FallbackPages, "Form pages assumed when no signature page is found")
	fs.StringArray("label", cfg.LabelPatterns, "Company name regular expression with one capture group (repeatable, replaces the defaults)")
	fs.String("rules", cfg.RulesFile, "TOML file with signature keywords and label patterns")
}

// FromFlagSet builds the configuration from an already parsed flag set
func FromFlagSet(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	populateConfigFromViper(v, cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = cfg.PDFDirectory
	} else if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
		cfg.OutputDirectory = expandedPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Renewal - renews order forms and splices them with old contract packages\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --outdir=/tmp/out   "+
			"# custom input and output directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081               # HTTP/SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option is also read from %s_<OPTION>, e.g. %s_DIR or %s_LOGLEVEL.\n",
			EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(os.Stderr, "  List options (NEEDLE, LABEL) separate entries with %q.\n", listSeparator)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("outdir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")

	cfg.Needles = stringList(v, "needle")
	cfg.Replacement = v.GetString("replacement")
	cfg.MatchMode = v.GetString("match")
	cfg.OnMiss = v.GetString("onmiss")
	cfg.FallbackPage = v.GetInt("fallbackpage")

	cfg.FontName = v.GetString("font")
	cfg.FontSize = v.GetFloat64("fontsize")
	cfg.Leading = v.GetFloat64("leading")
	cfg.Padding = v.GetFloat64("padding")
	cfg.FallbackX = v.GetFloat64("fallbackx")
	cfg.FallbackBaseline = v.GetFloat64("fallbacky")
	cfg.FallbackWidth = v.GetFloat64("fallbackwidth")

	cfg.ScanWindow = v.GetInt("scanwindow")
	cfg.FallbackPages = v.GetInt("fallbackpages")
	cfg.LabelPatterns = stringList(v, "label")
	cfg.RulesFile = v.GetString("rules")
}

// stringList reads a list option. Environment values arrive as one string
// and are split on listSeparator instead of whitespace.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	var out []string
	for _, s := range strings.Split(raw, listSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return err
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if err := ensureDir(c.PDFDirectory); err != nil {
		return err
	}
	if c.OutputDirectory != "" && c.OutputDirectory != c.PDFDirectory {
		if err := ensureDir(c.OutputDirectory); err != nil {
			return err
		}
	}

	return nil
}

// ensureDir creates dir when it does not exist
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// OutputDir returns the directory renewed files are written to
func (c *Config) OutputDir() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return c.PDFDirectory
}

// Rules loads the rules file, if any, and applies the label patterns and
// classification limits given on the command line
func (c *Config) Rules() (intelligence.RuleSet, error) {
	rules, err := intelligence.LoadRuleSet(c.RulesFile)
	if err != nil {
		return rules, err
	}

	if len(c.LabelPatterns) > 0 {
		rules.Labels = nil
		for i, p := range c.LabelPatterns {
			rules.Labels = append(rules.Labels, intelligence.LabelRule{Name: fmt.Sprintf("flag_%d", i+1), Pattern: p})
		}
	}
	if c.ScanWindow > 0 && c.ScanWindow != intelligence.DefaultScanWindow {
		rules.Signature.ScanWindow = c.ScanWindow
	}
	if c.FallbackPages > 0 && c.FallbackPages != intelligence.DefaultFallbackPages {
		rules.Signature.FallbackPages = c.FallbackPages
	}

	return rules, rules.Validate()
}

// WorkflowOptions translates the configuration into renewal options
func (c *Config) WorkflowOptions() (renewal.Options, error) {
	rules, err := c.Rules()
	if err != nil {
		return renewal.Options{}, fmt.Errorf("invalid rules: %w", err)
	}

	mode, err := locate.ParseMatchMode(c.MatchMode)
	if err != nil {
		return renewal.Options{}, err
	}

	return renewal.Options{
		Needles:      append([]string(nil), c.Needles...),
		MatchMode:    mode,
		Replacement:  c.Replacement,
		OnMiss:       renewal.MissPolicy(c.OnMiss),
		FallbackPage: c.FallbackPage,
		Overlay: overlay.Options{
			FontName:         c.FontName,
			FontSize:         c.FontSize,
			Leading:          c.Leading,
			Padding:          c.Padding,
			FallbackX:        c.FallbackX,
			FallbackBaseline: c.FallbackBaseline,
			FallbackWidth:    c.FallbackWidth,
		},
		Rules:  rules,
		Layout: extraction.DefaultLayoutParams(),
	}, nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, LogLevel: %s, "+
		"MaxFileSize: %d, Needles: %q, MatchMode: %s, OnMiss: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDir(), c.LogLevel,
		c.MaxFileSize, c.Needles, c.MatchMode, c.OnMiss)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
