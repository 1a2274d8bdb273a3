package model

import "testing"

func TestBaseEstimatorLifecycle(t *testing.T) {
	var e BaseEstimator

	if e.IsFitted() {
		t.Fatal("zero value must not be fitted")
	}
	if e.State().String() != "not_fitted" {
		t.Errorf("State() = %v, want not_fitted", e.State())
	}

	e.SetFitted()
	if !e.IsFitted() || e.State() != Fitted {
		t.Error("SetFitted did not mark the estimator as fitted")
	}

	e.Reset()
	if e.IsFitted() {
		t.Error("Reset did not clear the fitted state")
	}
}
