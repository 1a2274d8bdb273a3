// Package config holds the settings of a geofit run. Settings come from an
// optional properties file and are then overridden by command line flags.
//
// Example geofit.properties:
//
//	data = music.csv.gz
//	targets = 2
//	cv.k = 10
//	sweep.kind = lasso
//	sweep.lambda_min = 1e-4
//	sweep.lambda_max = 1e4
//	sweep.lambda_count = 100
//	parallel = 4
//	log.level = info
package config

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magiconair/properties"

	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/evaluation"
	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
	"github.com/YuminosukeSato/geofit/solver"
)

// Config is the complete set of run settings.
type Config struct {
	Data      string `properties:"data,default="`
	Delimiter string `properties:"delimiter,default="`
	Targets   int    `properties:"targets,default=2"`
	Header    string `properties:"header,default=auto"`
	Comment   string `properties:"comment,default="`

	TrainFraction float64 `properties:"split.train_fraction,default=0.7"`
	Folds         int     `properties:"cv.k,default=10"`

	Kind        string  `properties:"sweep.kind,default=lasso"`
	LambdaMin   float64 `properties:"sweep.lambda_min,default=0.0001"`
	LambdaMax   float64 `properties:"sweep.lambda_max,default=10000"`
	LambdaCount int     `properties:"sweep.lambda_count,default=100"`

	Solver   string        `properties:"solver,default=auto"`
	Parallel int           `properties:"parallel,default=1"`
	Timeout  time.Duration `properties:"timeout,default=0s"`

	LogLevel  string `properties:"log.level,default=info"`
	LogFormat string `properties:"log.format,default=console"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	c, err := decode(properties.NewProperties())
	if err != nil {
		// struct tag のデフォルト値は常に解釈できる
		panic(err)
	}
	return c
}

// Load reads a properties file. Keys that are absent keep their defaults.
func Load(path string) (*Config, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, errors.Wrapf(err, "config: load %s", path)
	}
	c, err := decode(p)
	if err != nil {
		return nil, errors.Wrapf(err, "config: decode %s", path)
	}
	return c, nil
}

// Parse reads properties from a string.
func Parse(s string) (*Config, error) {
	p, err := properties.LoadString(s)
	if err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	return decode(p)
}

func decode(p *properties.Properties) (*Config, error) {
	var c Config
	if err := p.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if _, err := c.CommentRune(); err != nil {
		return err
	}
	if c.Targets != 1 && c.Targets != 2 {
		return errors.NewValidationError("targets", "must be 1 or 2", c.Targets)
	}
	if _, err := dataset.ParseHeaderMode(c.Header); err != nil {
		return err
	}
	if !(c.TrainFraction > 0 && c.TrainFraction < 1) {
		return errors.NewValidationError("split.train_fraction", "must be in (0, 1)", c.TrainFraction)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("cv.k", "must be at least 2", c.Folds)
	}
	if _, err := linear.ParseKind(c.Kind); err != nil {
		return err
	}
	if !(c.LambdaMin > 0) {
		return errors.NewValidationError("sweep.lambda_min", "must be > 0", c.LambdaMin)
	}
	if c.LambdaMax < c.LambdaMin {
		return errors.NewValidationError("sweep.lambda_max", "must not be below sweep.lambda_min", c.LambdaMax)
	}
	if c.LambdaCount < 1 {
		return errors.NewValidationError("sweep.lambda_count", "must be at least 1", c.LambdaCount)
	}
	if _, err := c.Lambdas(); err != nil {
		return err
	}
	if _, err := solver.ByName(c.Solver); err != nil {
		return err
	}
	if c.Parallel < 1 {
		return errors.NewValidationError("parallel", "must be at least 1", c.Parallel)
	}
	if c.Timeout < 0 {
		return errors.NewValidationError("timeout", "must not be negative", c.Timeout)
	}
	if _, err := log.ToLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// DelimiterRune resolves the delimiter setting. "" means detect, "tab" and
// "comma" are accepted by name.
func (c *Config) DelimiterRune() (rune, error) {
	switch strings.ToLower(c.Delimiter) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	return singleRune("delimiter", c.Delimiter)
}

// CommentRune resolves the comment prefix; zero disables comments.
func (c *Config) CommentRune() (rune, error) {
	if c.Comment == "" {
		return 0, nil
	}
	return singleRune("comment", c.Comment)
}

func singleRune(param, s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.NewValidationError(param, "must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ReadOptions returns the dataset options the settings describe.
func (c *Config) ReadOptions() ([]dataset.Option, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return nil, err
	}
	comment, err := c.CommentRune()
	if err != nil {
		return nil, err
	}
	header, err := dataset.ParseHeaderMode(c.Header)
	if err != nil {
		return nil, err
	}

	opts := []dataset.Option{dataset.WithTargets(c.Targets), dataset.WithHeader(header)}
	if delim != 0 {
		opts = append(opts, dataset.WithDelimiter(delim))
	}
	if comment != 0 {
		opts = append(opts, dataset.WithComment(comment))
	}
	return opts, nil
}

// NewSolver returns the configured solver, bounded by Timeout when set.
func (c *Config) NewSolver() (solver.Solver, error) {
	s, err := solver.ByName(c.Solver)
	if err != nil {
		return nil, err
	}
	return solver.WithTimeout(s, c.Timeout), nil
}

// SweepKind returns the model kind swept over.
func (c *Config) SweepKind() (linear.Kind, error) {
	return linear.ParseKind(c.Kind)
}

// Lambdas returns the log-spaced sweep candidates.
func (c *Config) Lambdas() ([]float64, error) {
	return evaluation.LogSpace(c.LambdaMin, c.LambdaMax, c.LambdaCount)
}
