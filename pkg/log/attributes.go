// Package log defines standard attribute keys for regression and evaluation runs.
//
// Using these keys everywhere keeps log records from the fitter, the
// partitioner and the evaluation protocols filterable with one query
// (e.g. every record of a sweep shares "run.id", every fold record carries
// "cv.fold").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or fit kind.
	// Examples: "LinearRegression", "Ridge", "Lasso"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "evaluate", "cross_validate", "sweep"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates which split a value was computed on.
	PhaseKey = "ml.phase"

	// RunIDKey groups all records of one protocol invocation.
	RunIDKey = "run.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns before the targets).
	FeaturesKey = "data.features"

	// TargetsKey indicates how many trailing target columns the table carries.
	TargetsKey = "data.targets"

	// TargetKey names the regression target ("latitude" or "longitude").
	TargetKey = "data.target"

	// SourceKey is the dataset path or reader name.
	SourceKey = "data.source"
)

// Cross-validation and sweep context
const (
	// FoldsKey records k for k-fold cross-validation.
	FoldsKey = "cv.k"

	// FoldKey records the zero-based fold index.
	FoldKey = "cv.fold"

	// FoldStartKey and FoldEndKey record the held-out range [start, end).
	FoldStartKey = "cv.fold_start"
	FoldEndKey   = "cv.fold_end"

	// CandidatesKey records how many lambda candidates a sweep evaluates.
	CandidatesKey = "sweep.candidates"

	// RegularizationKey records the regularization strength lambda.
	RegularizationKey = "hyperparams.regularization"

	// SolverKey names the solver backend.
	SolverKey = "solver.name"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// TrainMSEKey and TestMSEKey record mean squared errors.
	TrainMSEKey = "metrics.train_mse"
	TestMSEKey  = "metrics.test_mse"

	// NonZeroKey records the number of non-zero coefficients of a fit.
	NonZeroKey = "metrics.nonzero_coef"

	// IterationKey records the iteration count of iterative solvers.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorKey is the field key for error values.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated for error values passed as fields.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationEvaluate      = "evaluate"
	OperationCrossValidate = "cross_validate"
	OperationSweep         = "sweep"
	OperationLoad          = "load"

	PhaseTraining = "training"
	PhaseTesting  = "testing"
)
