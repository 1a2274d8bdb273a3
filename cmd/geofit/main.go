// Command geofit fits linear models that predict the latitude and longitude
// of a music recording from its audio features, and evaluates them with a
// holdout split, k-fold cross-validation and a regularization sweep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/YuminosukeSato/geofit/config"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
)

var (
	name    = "geofit"
	version = "0.3.0"
)

type splitCmd struct {
	Target string `arg:"--target" default:"both" help:"latitude, longitude or both"`
}

type cvCmd struct {
	K []int `arg:"-k,separate" help:"number of folds, repeatable (default: cv.k from the config)"`
}

type sweepCmd struct {
	Target      string   `arg:"--target" default:"both" help:"latitude, longitude or both"`
	Kind        *string  `arg:"--kind" help:"model swept over: lasso or ridge"`
	LambdaMin   *float64 `arg:"--lambda-min" help:"smallest λ candidate"`
	LambdaMax   *float64 `arg:"--lambda-max" help:"largest λ candidate"`
	LambdaCount *int     `arg:"--lambda-count" help:"number of log-spaced λ candidates"`
	Plot        string   `arg:"--plot" help:"write the error curves to this image (.png, .svg, .pdf)"`
}

type allCmd struct {
	K    []int  `arg:"-k,separate" help:"number of folds, repeatable"`
	Plot string `arg:"--plot" help:"write the sweep error curves to this image"`
}

type args struct {
	Split *splitCmd `arg:"subcommand:split" help:"fit least squares on a 70/30 holdout split"`
	CV    *cvCmd    `arg:"subcommand:cv" help:"k-fold cross-validation of least squares"`
	Sweep *sweepCmd `arg:"subcommand:sweep" help:"select λ for ridge or lasso on the holdout split"`
	All   *allCmd   `arg:"subcommand:all" help:"run split, cv and sweep in order"`

	Data          *string        `arg:"-d,--data" help:"dataset file (.csv, .tsv, optionally .gz, .zst or .lz4)"`
	Config        string         `arg:"-c,--config" help:"properties file with default settings"`
	Delimiter     *string        `arg:"--delimiter" help:"field separator: tab, comma or a single character"`
	Targets       *int           `arg:"--targets" help:"number of trailing target columns (1 or 2)"`
	Header        *string        `arg:"--header" help:"auto, present or absent"`
	TrainFraction *float64       `arg:"--train-fraction" help:"share of leading rows used for training"`
	Solver        *string        `arg:"--solver" help:"auto, direct, coordinate_descent or lbfgs"`
	Parallel      *int           `arg:"-p,--parallel" help:"folds or λ candidates fitted concurrently"`
	Timeout       *time.Duration `arg:"--timeout" help:"time limit per fit, e.g. 30s"`
	LogLevel      *string        `arg:"--log-level" help:"debug, info, warn or error"`
	LogFormat     *string        `arg:"--log-format" help:"console or json"`
	Progress      bool           `arg:"--progress" help:"show a progress bar on stderr"`
}

func (args) Version() string {
	return name + " " + version
}

func (args) Description() string {
	return "geofit predicts where a piece of music comes from with OLS, ridge and lasso regression."
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand: split, cv, sweep or all")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a); err != nil {
		log.GetLogger().Error("geofit failed", log.ErrorKey, err)
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// resolveConfig loads the config file, if any, and applies flag overrides.
func resolveConfig(a args) (*config.Config, error) {
	cfg := config.Default()
	if a.Config != "" {
		var err error
		if cfg, err = config.Load(a.Config); err != nil {
			return nil, err
		}
	}

	override(&cfg.Data, a.Data)
	override(&cfg.Delimiter, a.Delimiter)
	override(&cfg.Targets, a.Targets)
	override(&cfg.Header, a.Header)
	override(&cfg.TrainFraction, a.TrainFraction)
	override(&cfg.Solver, a.Solver)
	override(&cfg.Parallel, a.Parallel)
	override(&cfg.Timeout, a.Timeout)
	override(&cfg.LogLevel, a.LogLevel)
	override(&cfg.LogFormat, a.LogFormat)
	if s := a.Sweep; s != nil {
		override(&cfg.Kind, s.Kind)
		override(&cfg.LambdaMin, s.LambdaMin)
		override(&cfg.LambdaMax, s.LambdaMax)
		override(&cfg.LambdaCount, s.LambdaCount)
	}

	if cfg.Data == "" {
		return nil, errors.NewValidationError("data", "a dataset file is required (--data or data= in the config)", cfg.Data)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func override[T any](dst *T, flag *T) {
	if flag != nil {
		*dst = *flag
	}
}
