package expand

import (
	"errors"

	"tachyon/constellation/internal/backend"
	"tachyon/constellation/internal/constellation"
)

// Message turns an expansion error into the text shown to the user.
// Depth exhaustion is a terminal state of the tree, not a failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, constellation.ErrDepthExceeded):
		return "This scenario is fully explored. You've reached all 10 levels of financing analysis."
	case errors.Is(err, constellation.ErrAlreadyExpanded):
		return "This scenario has already been expanded."
	case errors.Is(err, constellation.ErrNotFound):
		return "That scenario is no longer in the constellation."
	case errors.Is(err, constellation.ErrStaleSession):
		return "The constellation was replaced while this scenario was loading. Pick a scenario from the new constellation."
	case errors.Is(err, ErrInFlight):
		return "This scenario is already being expanded. Hang tight."
	case errors.Is(err, backend.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, backend.ErrRateLimited):
		return "The recommendation service is busy. Please wait a minute and try again."
	case errors.Is(err, backend.ErrMalformedResponse), errors.Is(err, backend.ErrUnavailable):
		return "Could not generate new scenarios. Please try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}

// Terminal reports whether err means the node cannot be expanded any further
func Terminal(err error) bool {
	return errors.Is(err, constellation.ErrDepthExceeded) || errors.Is(err, constellation.ErrAlreadyExpanded)
}
