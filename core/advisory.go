package core

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AdvisoryResult reports the outcome of a best-effort side step. Advisory
// operations are logged but structurally cannot fail their parent outcome.
type AdvisoryResult struct {
	ID        string
	Operation string
	Err       error
}

func (r AdvisoryResult) OK() bool {
	return r.Err == nil
}

// RunAdvisory executes a best-effort operation. Failures are logged at warn
// level and returned for inspection; they never propagate. The return is
// named so the recover path hands callers the populated result.
func RunAdvisory(ctx context.Context, logger Logger, operation string, fn func(ctx context.Context) error) (result AdvisoryResult) {
	result = AdvisoryResult{
		ID:        uuid.NewString(),
		Operation: strings.TrimSpace(operation),
	}
	if fn == nil {
		return result
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Err = goerrors.New(
				fmt.Sprintf("core: advisory operation panicked: %v", recovered),
				goerrors.CategoryInternal,
			).WithTextCode(AuthErrorInternal)
			logAdvisoryFailure(logger, result)
		}
	}()

	result.Err = fn(ctx)
	if result.Err != nil {
		logAdvisoryFailure(logger, result)
	}
	return result
}

func logAdvisoryFailure(logger Logger, result AdvisoryResult) {
	if logger == nil {
		return
	}
	logger.Warn("advisory operation failed",
		"operation", result.Operation,
		"advisory_id", result.ID,
		"error", result.Err,
	)
}
