package fabric

import (
	"context"
	"errors"
	"fmt"
)

// Describe renders err as a short message for people, prefixed with the
// action that failed, e.g. "Error listing lakehouses: ...". It returns ""
// for a nil error.
func Describe(action string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error %s: %s", action, describeCause(err))
}

func describeCause(err error) string {
	var (
		te *TransportError
		oe *OperationError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.As(err, &oe):
		return oe.Error()
	case errors.As(err, &te) && te.StatusCode != 0:
		if msg := operationErrorMessage([]byte(te.Body)); msg != "" {
			return fmt.Sprintf("platform returned HTTP %d: %s", te.StatusCode, msg)
		}
		return fmt.Sprintf("platform returned HTTP %d", te.StatusCode)
	default:
		return err.Error()
	}
}
