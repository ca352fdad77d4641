package pipeline

import (
	"fmt"
	"strings"

	"adstudio/internal/domain"
)

// classifyProviderError maps a provider failure message onto a domain error.
// Matching is case-insensitive on substrings the provider is known to emit.
func classifyProviderError(message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "safety"),
		strings.Contains(lower, "policy"),
		strings.Contains(lower, "blocked"):
		return fmt.Errorf("%w: %s", domain.ErrPolicyViolation, message)
	case strings.Contains(lower, "unable to process input image"):
		return fmt.Errorf("%w: %s", domain.ErrImageProcessing, message)
	case strings.Contains(lower, "requested entity was not found"),
		strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%w: %s", domain.ErrAuthorization, message)
	default:
		return fmt.Errorf("%w: %s", domain.ErrGenerationFailed, message)
	}
}
