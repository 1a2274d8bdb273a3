package modelselection

import (
	"fmt"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// Fold is the held out row range [Start, End) of one k-fold iteration.
type Fold struct {
	Index int
	Start int
	End   int
}

// Len returns the number of held out rows.
func (f Fold) Len() int {
	return f.End - f.Start
}

// Contains reports whether row is held out by this fold.
func (f Fold) Contains(row int) bool {
	return row >= f.Start && row < f.End
}

func (f Fold) String() string {
	return fmt.Sprintf("fold %d [%d, %d)", f.Index, f.Start, f.End)
}

// KFold is a contiguous k-fold partitioner. Every fold holds floor(n/K)
// rows except the last, which also takes the remainder.
type KFold struct {
	K int
}

func (kf KFold) validate(nRows int) error {
	if kf.K < 2 || kf.K > nRows {
		return errors.NewInvalidPartitionError("modelselection.KFold", kf.K, nRows, -1)
	}
	return nil
}

// Fold returns the fold with the given index.
func (kf KFold) Fold(nRows, index int) (Fold, error) {
	if err := kf.validate(nRows); err != nil {
		return Fold{}, err
	}
	if index < 0 || index >= kf.K {
		return Fold{}, errors.NewInvalidPartitionError("modelselection.KFold", kf.K, nRows, index)
	}

	size := nRows / kf.K
	f := Fold{Index: index, Start: index * size, End: (index + 1) * size}
	if index == kf.K-1 {
		f.End = nRows
	}
	return f, nil
}

// Folds enumerates all K folds in index order. Together they cover
// [0, nRows) exactly once.
func (kf KFold) Folds(nRows int) ([]Fold, error) {
	if err := kf.validate(nRows); err != nil {
		return nil, err
	}
	folds := make([]Fold, kf.K)
	for i := range folds {
		// validate で範囲は確認済み
		folds[i], _ = kf.Fold(nRows, i)
	}
	return folds, nil
}
