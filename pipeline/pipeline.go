// Package pipeline runs an ordered list of named stages over an immutable
// snapshot value.
//
// Each stage receives the snapshot produced by the previous one and returns
// a new snapshot. The first failing stage stops the run; a panic inside a
// stage is converted into an error. Every stage is logged with its position
// and duration.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// Stage is a single named step of a pipeline.
type Stage[S any] struct {
	Name string
	Run  func(S) (S, error)
}

// Run executes stages in order, starting from initial. On failure the zero
// snapshot is returned together with the error wrapped with the pipeline and
// stage names.
func Run[S any](name string, logger log.Logger, initial S, stages ...Stage[S]) (S, error) {
	if logger == nil {
		logger = log.GetLoggerWithName(name)
	}
	logger = logger.With(log.PipelineKey, name, log.RunIDKey, uuid.NewString())

	state := initial
	for i, stage := range stages {
		stageLogger := logger.With(log.StageKey, stage.Name, log.StageIndexKey, i)
		stageLogger.Debug("stage started")

		start := time.Now()
		var next S
		err := errors.SafeExecute(name+"."+stage.Name, func() error {
			var runErr error
			next, runErr = stage.Run(state)
			return runErr
		})
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			stageLogger.Error("stage failed",
				log.ErrAttrKey, err,
				log.ErrorCodeKey, ErrorCode(err),
				log.DurationMsKey, elapsed,
			)
			var zero S
			return zero, errors.Wrapf(err, "%s: stage %s", name, stage.Name)
		}

		stageLogger.Info("stage completed", log.DurationMsKey, elapsed)
		state = next
	}
	return state, nil
}

// ErrorCode maps an error to the structured code used in log records.
func ErrorCode(err error) string {
	var (
		notFitted *errors.NotFittedError
		dimension *errors.DimensionError
		missing   *errors.MissingColumnError
		merge     *errors.MergeInvariantError
		value     *errors.ValueError
		invalid   *errors.ValidationError
	)
	switch {
	case errors.As(err, &merge):
		return log.ErrorMergeInvariant
	case errors.As(err, &missing):
		return log.ErrorMissingColumn
	case errors.As(err, &notFitted):
		return log.ErrorNotFitted
	case errors.As(err, &dimension):
		return log.ErrorDimensionMismatch
	case errors.Is(err, errors.ErrEmptyData):
		return log.ErrorEmptyData
	case errors.As(err, &value), errors.As(err, &invalid):
		return log.ErrorInvalidInput
	default:
		return "INTERNAL"
	}
}
