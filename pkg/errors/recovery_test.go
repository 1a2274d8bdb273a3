package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, As(err, &panicErr), "expected PanicError, got %T", err)
	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.Equal(t, "test panic message", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}
	assert.NoError(t, testFunc())
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "panic in TestOperation"))
	assert.True(t, Is(err, originalErr))
}

func TestSafeExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		assert.NoError(t, SafeExecute("noop", func() error { return nil }))
	})

	t.Run("function error is returned unchanged", func(t *testing.T) {
		want := New("boom")
		err := SafeExecute("op", func() error { return want })
		assert.True(t, Is(err, want))
	})

	t.Run("panic becomes PanicError", func(t *testing.T) {
		err := SafeExecute("op", func() error {
			var s []int
			_ = s[3]
			return nil
		})
		var panicErr *PanicError
		assert.True(t, As(err, &panicErr))
	})
}

func TestSafeSolve(t *testing.T) {
	err := SafeSolve("direct", func() error {
		panic(fmt.Errorf("mat: dimension mismatch"))
	})
	require.Error(t, err)
	assert.True(t, Is(err, ErrSolverFailure))

	var solverErr *SolverError
	require.True(t, As(err, &solverErr))
	assert.Equal(t, "direct", solverErr.Solver)

	plain := New("not a panic")
	assert.Equal(t, plain, SafeSolve("direct", func() error { return plain }))
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
