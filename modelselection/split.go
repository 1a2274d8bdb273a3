// Package modelselection partitions a dataset.Table into train and test
// blocks: a single ordered holdout split and contiguous k-fold splits.
//
// Rows are never shuffled. Partitioning is deterministic so every protocol
// built on top of it is reproducible.
package modelselection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// DefaultTrainFraction is the share of leading rows used for training by a
// holdout split.
const DefaultTrainFraction = 0.7

// Split is one train/test partition of a table for a single target.
type Split struct {
	XTrain *mat.Dense
	YTrain *mat.VecDense
	XTest  *mat.Dense
	YTest  *mat.VecDense
}

// TrainSize returns the number of training rows.
func (s *Split) TrainSize() int {
	r, _ := s.XTrain.Dims()
	return r
}

// TestSize returns the number of held out rows.
func (s *Split) TestSize() int {
	r, _ := s.XTest.Dims()
	return r
}

// TrainTestSplit puts the first floor(trainFraction*n) rows in the training
// block and the remainder in the test block.
func TrainTestSplit(table *dataset.Table, target dataset.Target, trainFraction float64) (*Split, error) {
	const op = "modelselection.TrainTestSplit"

	if table == nil {
		return nil, errors.NewEmptyInputError(op)
	}
	if math.IsNaN(trainFraction) || trainFraction <= 0 || trainFraction >= 1 {
		return nil, errors.NewValidationError("trainFraction", "must be in (0, 1)", trainFraction)
	}

	n := table.Rows()
	cut := int(math.Floor(trainFraction * float64(n)))
	if cut == 0 || cut == n {
		return nil, errors.NewModelError(op, "split leaves one side empty", errors.ErrEmptyInput)
	}

	xTrain, yTrain, err := table.Slice(target, 0, cut)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := table.Slice(target, cut, n)
	if err != nil {
		return nil, err
	}
	return &Split{XTrain: xTrain, YTrain: yTrain, XTest: xTest, YTest: yTest}, nil
}

// KFoldSplit holds out fold foldIndex of a contiguous k-fold partition and
// trains on every other row, in original order.
func KFoldSplit(table *dataset.Table, target dataset.Target, k, foldIndex int) (*Split, error) {
	const op = "modelselection.KFoldSplit"

	if table == nil {
		return nil, errors.NewEmptyInputError(op)
	}
	n := table.Rows()
	fold, err := KFold{K: k}.Fold(n, foldIndex)
	if err != nil {
		return nil, err
	}

	trainRows := make([]int, 0, n-fold.Len())
	for i := 0; i < n; i++ {
		if !fold.Contains(i) {
			trainRows = append(trainRows, i)
		}
	}

	xTrain, yTrain, err := table.Gather(target, trainRows)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := table.Slice(target, fold.Start, fold.End)
	if err != nil {
		return nil, err
	}
	return &Split{XTrain: xTrain, YTrain: yTrain, XTest: xTest, YTest: yTest}, nil
}
