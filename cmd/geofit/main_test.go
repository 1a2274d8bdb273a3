package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/geofit/dataset"
)

func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))

	var sb strings.Builder
	sb.WriteString("f1,f2,f3,lat,lon\n")
	for i := 0; i < rows; i++ {
		x1, x2, x3 := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		lat := 2*x1 - x3 + 0.1*rng.NormFloat64()
		lon := -x2 + 0.5*x3 + 0.1*rng.NormFloat64()
		fmt.Fprintf(&sb, "%g,%g,%g,%g,%g\n", x1, x2, x3, lat, lon)
	}

	path := filepath.Join(t.TempDir(), "music.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func ptr[T any](v T) *T { return &v }

func TestResolveConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "geofit.properties")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data = from-file.csv\nparallel = 2\nsweep.kind = ridge\n"), 0o600))

	cfg, err := resolveConfig(args{
		Config:   cfgPath,
		Parallel: ptr(8),
		Timeout:  ptr(2 * time.Second),
		Sweep:    &sweepCmd{LambdaCount: ptr(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, "from-file.csv", cfg.Data)
	assert.Equal(t, 8, cfg.Parallel)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "ridge", cfg.Kind)
	assert.Equal(t, 7, cfg.LambdaCount)
}

func TestResolveConfigErrors(t *testing.T) {
	_, err := resolveConfig(args{})
	assert.Error(t, err, "data is required")

	_, err = resolveConfig(args{Data: ptr("x.csv"), Parallel: ptr(0)})
	assert.Error(t, err)
}

func TestSessionAll(t *testing.T) {
	data := writeDataset(t, 60)
	plotPath := filepath.Join(t.TempDir(), "sweep.png")

	cfg, err := resolveConfig(args{
		Data:  ptr(data),
		Sweep: &sweepCmd{LambdaMin: ptr(1e-3), LambdaMax: ptr(1e3), LambdaCount: ptr(9)},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	s, err := newSession(cfg, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 60, s.table.Rows())

	require.NoError(t, s.all(context.Background(), []int{3, 5}, plotPath))

	text := out.String()
	assert.Contains(t, text, "== holdout split ==")
	assert.Contains(t, text, "3-fold cross-validation (ols)")
	assert.Contains(t, text, "5-fold cross-validation (ols)")
	assert.Equal(t, 2, strings.Count(text, "== lambda sweep =="))
	assert.Contains(t, text, "best λ")

	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSessionTargets(t *testing.T) {
	cfg, err := resolveConfig(args{Data: ptr(writeDataset(t, 20)), Targets: ptr(1)})
	require.NoError(t, err)

	s, err := newSession(cfg, false, &bytes.Buffer{})
	require.NoError(t, err)

	got, err := s.targets("both")
	require.NoError(t, err)
	assert.Equal(t, []dataset.Target{dataset.Latitude}, got)

	_, err = s.targets("longitude")
	assert.Error(t, err)

	_, err = s.targets("altitude")
	assert.Error(t, err)
}
