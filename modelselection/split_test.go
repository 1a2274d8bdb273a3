package modelselection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// newTable builds an n-row table with two features and two targets. Row i is
// (i, 10i, 100+i, 200+i) so every value identifies its source row.
func newTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	data := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		data.SetRow(i, []float64{float64(i), float64(10 * i), float64(100 + i), float64(200 + i)})
	}
	table, err := dataset.NewTable(data, 2)
	require.NoError(t, err)
	return table
}

func rowIDs(X *mat.Dense) []int {
	r, _ := X.Dims()
	ids := make([]int, r)
	for i := range ids {
		ids[i] = int(X.At(i, 0))
	}
	return ids
}

func TestKFoldFolds(t *testing.T) {
	folds, err := KFold{K: 3}.Folds(10)
	require.NoError(t, err)

	want := []Fold{
		{Index: 0, Start: 0, End: 3},
		{Index: 1, Start: 3, End: 6},
		{Index: 2, Start: 6, End: 10},
	}
	assert.Equal(t, want, folds)
}

func TestKFoldCoversEveryRowOnce(t *testing.T) {
	for n := 2; n <= 40; n++ {
		for k := 2; k <= n; k++ {
			folds, err := KFold{K: k}.Folds(n)
			require.NoError(t, err)
			require.Len(t, folds, k)

			seen := make([]int, n)
			for _, f := range folds {
				for r := f.Start; r < f.End; r++ {
					seen[r]++
				}
				assert.Equal(t, n/k, folds[0].Len())
			}
			for r, c := range seen {
				if c != 1 {
					t.Fatalf("n=%d k=%d: row %d held out %d times", n, k, r, c)
				}
			}
			assert.Equal(t, n/k+n%k, folds[k-1].Len())
		}
	}
}

func TestKFoldInvalid(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		n     int
		index int
	}{
		{"k of one", 1, 10, 0},
		{"k of zero", 0, 10, 0},
		{"k larger than rows", 11, 10, 0},
		{"negative fold", 3, 10, -1},
		{"fold equal to k", 3, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KFold{K: tt.k}.Fold(tt.n, tt.index)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidPartition))

			var pe *errors.InvalidPartitionError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.k, pe.K)
		})
	}
}

func TestTrainTestSplit(t *testing.T) {
	table := newTable(t, 10)

	split, err := TrainTestSplit(table, dataset.Latitude, DefaultTrainFraction)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, rowIDs(split.XTrain))
	assert.Equal(t, []int{7, 8, 9}, rowIDs(split.XTest))
	assert.Equal(t, 7, split.TrainSize())
	assert.Equal(t, 3, split.TestSize())

	_, c := split.XTrain.Dims()
	assert.Equal(t, 2, c, "targets must not leak into features")
	assert.Equal(t, 100.0, split.YTrain.AtVec(0))
	assert.Equal(t, 109.0, split.YTest.AtVec(2))

	lon, err := TrainTestSplit(table, dataset.Longitude, DefaultTrainFraction)
	require.NoError(t, err)
	assert.Equal(t, 207.0, lon.YTest.AtVec(0))
}

func TestTrainTestSplitFloorsCut(t *testing.T) {
	// floor(0.7 * 3) = 2
	split, err := TrainTestSplit(newTable(t, 3), dataset.Latitude, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 2, split.TrainSize())
	assert.Equal(t, 1, split.TestSize())
}

func TestTrainTestSplitErrors(t *testing.T) {
	table := newTable(t, 10)

	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		_, err := TrainTestSplit(table, dataset.Latitude, frac)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "fraction %v", frac)
	}

	// floor(0.7 * 1) = 0 rows to train on
	_, err := TrainTestSplit(newTable(t, 1), dataset.Latitude, 0.7)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))

	// floor(0.95 * 10) = 9, one test row remains
	_, err = TrainTestSplit(table, dataset.Latitude, 0.95)
	assert.NoError(t, err)

	_, err = TrainTestSplit(nil, dataset.Latitude, 0.7)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
}

func TestKFoldSplit(t *testing.T) {
	table := newTable(t, 10)

	tests := []struct {
		fold      int
		wantTest  []int
		wantTrain []int
	}{
		{0, []int{0, 1, 2}, []int{3, 4, 5, 6, 7, 8, 9}},
		{1, []int{3, 4, 5}, []int{0, 1, 2, 6, 7, 8, 9}},
		{2, []int{6, 7, 8, 9}, []int{0, 1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		split, err := KFoldSplit(table, dataset.Latitude, 3, tt.fold)
		require.NoError(t, err)
		assert.Equal(t, tt.wantTest, rowIDs(split.XTest), "fold %d test", tt.fold)
		assert.Equal(t, tt.wantTrain, rowIDs(split.XTrain), "fold %d train", tt.fold)

		for i, id := range rowIDs(split.XTrain) {
			assert.Equal(t, float64(100+id), split.YTrain.AtVec(i))
		}
	}
}

func TestKFoldSplitErrors(t *testing.T) {
	table := newTable(t, 10)

	_, err := KFoldSplit(table, dataset.Latitude, 1, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidPartition))

	_, err = KFoldSplit(table, dataset.Latitude, 11, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidPartition))

	_, err = KFoldSplit(table, dataset.Latitude, 3, 3)
	assert.True(t, errors.Is(err, errors.ErrInvalidPartition))

	// k == n: leave-one-out
	split, err := KFoldSplit(table, dataset.Latitude, 10, 9)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, rowIDs(split.XTest))
	assert.Equal(t, 9, split.TrainSize())
}
