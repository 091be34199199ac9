package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/fleetsync/fleetsync/internal/provider"
)

// notFoundCodes are the AWS error codes that mean the queried resource is
// legitimately gone rather than temporarily unreachable.
var notFoundCodes = map[string]struct{}{
	"InvalidInstanceID.NotFound":      {},
	"InvalidGroup.NotFound":           {},
	"DeploymentDoesNotExistException": {},
	"ServiceNotFoundException":        {},
	"ClusterNotFoundException":        {},
	"ServiceNotActiveException":       {},
}

// classify maps AWS API errors onto the provider error contract: known
// not-found codes become provider.ErrNotFound, everything else passes
// through as a transient failure.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		if _, ok := notFoundCodes[code]; ok || strings.Contains(code, "NotFound") {
			return fmt.Errorf("%s: %w", op, provider.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
