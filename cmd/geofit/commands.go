package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/geofit/config"
	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/evaluation"
	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
	"github.com/YuminosukeSato/geofit/report"
)

// session is everything a subcommand needs.
type session struct {
	cfg    *config.Config
	table  *dataset.Table
	ev     *evaluation.Evaluator
	logger log.Logger
	out    io.Writer
}

func run(ctx context.Context, a args) error {
	cfg, err := resolveConfig(a)
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return err
	}

	s, err := newSession(cfg, a.Progress, os.Stdout)
	if err != nil {
		return err
	}

	switch {
	case a.Split != nil:
		return s.split(ctx, a.Split.Target)
	case a.CV != nil:
		return s.crossValidate(ctx, a.CV.K)
	case a.Sweep != nil:
		return s.sweep(ctx, a.Sweep.Target, a.Sweep.Plot)
	case a.All != nil:
		return s.all(ctx, a.All.K, a.All.Plot)
	}
	return nil
}

func newSession(cfg *config.Config, progress bool, out io.Writer) (*session, error) {
	logger := log.GetLoggerWithName("geofit")

	opts, err := cfg.ReadOptions()
	if err != nil {
		return nil, err
	}
	table, err := dataset.Load(cfg.Data, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, table.Source(),
		log.SamplesKey, table.Rows(),
		log.FeaturesKey, table.NumFeatures(),
		log.TargetsKey, table.NumTargets(),
	)

	slv, err := cfg.NewSolver()
	if err != nil {
		return nil, err
	}
	evOpts := []evaluation.Option{
		evaluation.WithSolver(slv),
		evaluation.WithParallelism(cfg.Parallel),
		evaluation.WithTrainFraction(cfg.TrainFraction),
	}
	if progress {
		evOpts = append(evOpts, evaluation.WithProgress(newBarProgress(os.Stderr)))
	}

	return &session{cfg: cfg, table: table, ev: evaluation.New(evOpts...), logger: logger, out: out}, nil
}

// targets resolves "both" (every target of the table) or a single name.
func (s *session) targets(name string) ([]dataset.Target, error) {
	if name == "" || strings.EqualFold(name, "both") {
		return s.table.Targets(), nil
	}
	t, err := dataset.ParseTarget(name)
	if err != nil {
		return nil, err
	}
	if int(t) >= s.table.NumTargets() {
		return nil, errors.NewValidationError("target", fmt.Sprintf("table has %d target column(s)", s.table.NumTargets()), name)
	}
	return []dataset.Target{t}, nil
}

func (s *session) split(ctx context.Context, target string) error {
	targets, err := s.targets(target)
	if err != nil {
		return err
	}

	results := make([]*evaluation.SplitResult, 0, len(targets))
	for _, t := range targets {
		res, err := s.ev.EvaluateSplit(ctx, s.table, t)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	fmt.Fprintln(s.out, "== holdout split ==")
	return report.WriteSplit(s.out, results...)
}

func (s *session) crossValidate(ctx context.Context, ks []int) error {
	if len(ks) == 0 {
		ks = []int{s.cfg.Folds}
	}
	for _, k := range ks {
		res, err := s.ev.CrossValidate(ctx, s.table, k)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "== cross-validation ==")
		if err := report.WriteCV(s.out, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) sweep(ctx context.Context, target, plotPath string) error {
	targets, err := s.targets(target)
	if err != nil {
		return err
	}
	kind, err := s.cfg.SweepKind()
	if err != nil {
		return err
	}
	lambdas, err := s.cfg.Lambdas()
	if err != nil {
		return err
	}

	var sweeps []*evaluation.SweepResult
	for _, t := range targets {
		res, err := s.ev.SweepLambda(ctx, s.table, t, kind, lambdas)
		if err != nil {
			return err
		}
		sweeps = append(sweeps, res)

		fmt.Fprintln(s.out, "== lambda sweep ==")
		if err := report.WriteSweep(s.out, res); err != nil {
			return err
		}

		// 最良の λ で Ridge と Lasso を学習し直し、非ゼロ係数の数を比べる
		var refits []*evaluation.SplitResult
		for _, k := range []linear.Kind{linear.Ridge, linear.Lasso} {
			r, err := s.ev.EvaluateModel(ctx, s.table, t, evaluation.FitSpec{Kind: k, Lambda: res.Best.Lambda})
			if err != nil {
				return err
			}
			refits = append(refits, r)
		}
		if err := report.WriteModel(s.out, refits...); err != nil {
			return err
		}
	}

	if plotPath != "" {
		if err := report.PlotSweep(plotPath, sweeps...); err != nil {
			return err
		}
		s.logger.Info("sweep plot written", "path", plotPath)
	}
	return nil
}

func (s *session) all(ctx context.Context, ks []int, plotPath string) error {
	if err := s.split(ctx, "both"); err != nil {
		return err
	}
	if err := s.crossValidate(ctx, ks); err != nil {
		return err
	}
	return s.sweep(ctx, "both", plotPath)
}
