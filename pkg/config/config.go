package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/peterbourgon/ff/v4/ffval"
	"gopkg.in/yaml.v3"

	"pricescan/pkg/ocr"
)

// DefaultFile is the optional YAML config read from the working directory.
const DefaultFile = "pricescan.yaml"

// EnvPrefix prefixes the environment variables mirroring each flag,
// e.g. PRICESCAN_IMAGES_DIR.
const EnvPrefix = "PRICESCAN"

// Config holds everything the batch, the review API and the history store need.
type Config struct {
	Root         string       `yaml:"root"`
	ImagesDir    string       `yaml:"images_dir"`
	LogoName     string       `yaml:"logo_name"`
	OutputJSON   string       `yaml:"output_json"`
	OutputJS     string       `yaml:"output_js"`
	OutputXLSX   string       `yaml:"output_xlsx"`
	CachePath    string       `yaml:"cache_path"`
	MaxDimension int          `yaml:"max_dimension"`
	Threshold    int          `yaml:"threshold"`
	Languages    string       `yaml:"languages"`
	Verbose      bool         `yaml:"verbose"`
	Watch        bool         `yaml:"watch"`
	DatabaseDSN  string       `yaml:"database_dsn"`
	Server       ServerConfig `yaml:"server"`
}

// ServerConfig configures `pricescan serve`.
type ServerConfig struct {
	Addr                 string `yaml:"addr"`
	JWTSecret            string `yaml:"jwt_secret"`
	ReviewerUser         string `yaml:"reviewer_user"`
	ReviewerPasswordHash string `yaml:"reviewer_password_hash"`
}

// Default returns the settings of a plain zero-argument run.
func Default() *Config {
	return &Config{
		Root:         ".",
		ImagesDir:    "imagenes",
		LogoName:     "logo.png",
		OutputJSON:   "saved_prices.json",
		OutputJS:     "saved_prices.js",
		MaxDimension: ocr.DefaultMaxDimension,
		Threshold:    ocr.DefaultThreshold,
		Languages:    ocr.DefaultLanguages,
		Server: ServerConfig{
			Addr:         ":8081",
			ReviewerUser: "admin",
		},
	}
}

// Load reads a YAML config file on top of Default. Environment references
// (${VAR}) are expanded. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ErrHelp is returned (wrapped in a UsageError) when -h or --help was given.
var ErrHelp = ff.ErrHelp

// UsageError carries the flag help text alongside a parse failure.
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Parse builds the configuration for a command: defaults, then the YAML file
// named by --config (or DefaultFile), then PRICESCAN_* variables, then flags.
func Parse(name string, args []string) (*Config, error) {
	configPath := configFlag(args)
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	fs := ff.NewFlagSet(name)
	var (
		_          = fs.StringLong("config", configPath, "YAML config file")
		root       = fs.StringLong("root", cfg.Root, "project root holding the image folder and outputs")
		imagesDir  = fs.StringLong("images-dir", cfg.ImagesDir, "image folder, relative to root")
		logo       = fs.StringLong("logo", cfg.LogoName, "file name skipped in the image folder (case-insensitive)")
		outJSON    = fs.StringLong("out-json", cfg.OutputJSON, "JSON output, relative to root")
		outJS      = fs.StringLong("out-js", cfg.OutputJS, "localStorage script output, relative to root")
		outXLSX    = fs.StringLong("xlsx", cfg.OutputXLSX, "optional XLSX export, relative to root")
		cache      = fs.StringLong("cache", cfg.CachePath, "optional bbolt file caching OCR details")
		maxDim     = fs.IntLong("max-dim", cfg.MaxDimension, "largest image side handed to OCR")
		threshold  = fs.IntLong("threshold", cfg.Threshold, "binarization threshold (0-255)")
		langs      = fs.StringLong("langs", cfg.Languages, "tesseract languages for text passes")
		verbose    = boolFlag(fs, "verbose", cfg.Verbose, "log every OCR pass")
		watch      = boolFlag(fs, "watch", cfg.Watch, "keep running and rescan when the image folder changes")
		dsn        = fs.StringLong("db-dsn", cfg.DatabaseDSN, "optional Postgres DSN for scan history")
		addr       = fs.StringLong("addr", cfg.Server.Addr, "review API listen address")
		jwtSecret  = fs.StringLong("jwt-secret", cfg.Server.JWTSecret, "review API token signing secret")
		reviewer   = fs.StringLong("reviewer", cfg.Server.ReviewerUser, "review API username")
		reviewHash = fs.StringLong("reviewer-hash", cfg.Server.ReviewerPasswordHash, "bcrypt hash of the review API password")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, &UsageError{Usage: fmt.Sprint(ffhelp.Flags(fs)), Err: err}
	}

	cfg.Root = *root
	cfg.ImagesDir = *imagesDir
	cfg.LogoName = *logo
	cfg.OutputJSON = *outJSON
	cfg.OutputJS = *outJS
	cfg.OutputXLSX = *outXLSX
	cfg.CachePath = *cache
	cfg.MaxDimension = *maxDim
	cfg.Threshold = *threshold
	cfg.Languages = *langs
	cfg.Verbose = *verbose
	cfg.Watch = *watch
	cfg.DatabaseDSN = *dsn
	cfg.Server.Addr = *addr
	cfg.Server.JWTSecret = *jwtSecret
	cfg.Server.ReviewerUser = *reviewer
	cfg.Server.ReviewerPasswordHash = *reviewHash
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// boolFlag registers a bool flag defaulting to the config file value, so the
// environment or the command line can also switch it off.
func boolFlag(fs *ff.FlagSet, long string, def bool, usage string) *bool {
	p := new(bool)
	if _, err := fs.AddFlag(ff.FlagConfig{
		LongName: long,
		Usage:    usage,
		Value:    ffval.NewValueDefault(p, def),
	}); err != nil {
		panic(err)
	}
	return p
}

// configFlag finds --config before the flag set exists, since the file
// supplies the flag defaults.
func configFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" || a == "-config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		}
	}
	if v := os.Getenv(EnvPrefix + "_CONFIG"); v != "" {
		return v
	}
	return DefaultFile
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ImagesDir) == "" {
		return fmt.Errorf("images dir must not be empty")
	}
	if c.OutputJSON == "" || c.OutputJS == "" {
		return fmt.Errorf("both output paths are required")
	}
	if _, err := ocr.ParseThreshold(c.Threshold); err != nil {
		return err
	}
	if c.MaxDimension < 0 {
		return fmt.Errorf("max dimension must not be negative")
	}
	if len(ocr.SplitLanguages(c.Languages)) == 0 {
		return fmt.Errorf("at least one OCR language is required")
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// InputDir is the absolute or root-relative image folder.
func (c *Config) InputDir() string { return c.resolve(c.ImagesDir) }

// JSONPath is where saved_prices.json is written.
func (c *Config) JSONPath() string { return c.resolve(c.OutputJSON) }

// JSPath is where saved_prices.js is written.
func (c *Config) JSPath() string { return c.resolve(c.OutputJS) }

// XLSXPath is the optional spreadsheet export, "" when disabled.
func (c *Config) XLSXPath() string { return c.resolve(c.OutputXLSX) }

// CacheFile is the optional detail cache, "" when disabled.
func (c *Config) CacheFile() string { return c.resolve(c.CachePath) }

// LoadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return // no .env file
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
