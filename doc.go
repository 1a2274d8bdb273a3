// Package geofit predicts the geographic origin of a piece of music from
// its audio features with linear regression, and evaluates the models.
//
// A dataset is a numeric table: every column but the last one or two is an
// audio feature, the trailing columns are the latitude and longitude of the
// recording's origin. geofit fits ordinary least squares, ridge (L2) and
// lasso (L1) models without an intercept and compares them with three
// protocols.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/geofit/dataset"
//	    "github.com/YuminosukeSato/geofit/evaluation"
//	    "github.com/YuminosukeSato/geofit/linear"
//	)
//
//	func main() {
//	    table, err := dataset.Load("music.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    ev := evaluation.New(evaluation.WithParallelism(4))
//	    ctx := context.Background()
//
//	    split, err := ev.EvaluateSplit(ctx, table, dataset.Latitude)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("test MSE:", split.TestMSE)
//
//	    lambdas, _ := evaluation.LogSpace(1e-4, 1e4, 100)
//	    sweep, err := ev.SweepLambda(ctx, table, dataset.Latitude, linear.Lasso, lambdas)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("best λ:", sweep.Best.Lambda)
//	}
//
// # Packages
//
//   - dataset: numeric tables and the CSV/TSV loader (gzip, zstd, lz4 aware)
//   - modelselection: ordered holdout split and contiguous k-fold partitions
//   - solver: least squares objectives and their solvers (SVD, Cholesky,
//     coordinate descent, L-BFGS)
//   - linear: Fit, Coefficients and the LinearRegression, Ridge and Lasso estimators
//   - metrics: MSE, RMSE, MAE, R²
//   - evaluation: holdout, k-fold and λ sweep protocols
//   - report: text tables and sweep charts
//   - config: properties file settings
//   - core/model: estimator interfaces and base types
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error types and structured logging
//
// The geofit command in cmd/geofit runs the protocols from the shell.
//
// # Performance
//
//   - Prediction is parallelized automatically for more than 1000 rows
//   - Folds and λ candidates can be fitted concurrently
//     (evaluation.WithParallelism); results do not depend on the setting
//
// # License
//
// geofit is released under the MIT License.
package geofit
