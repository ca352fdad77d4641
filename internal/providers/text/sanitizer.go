package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Rewriter is the model call the sanitizer depends on.
type Rewriter interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sanitizer rewrites a prompt into a policy-compliant form before it is
// submitted for generation, keeping the marketing intent. It never fails the
// caller: any problem during rewriting returns the original prompt verbatim.
type Sanitizer struct {
	rewriter Rewriter
	logger   zerolog.Logger
}

// NewSanitizer creates a sanitizer over the given rewriter.
func NewSanitizer(rewriter Rewriter, logger zerolog.Logger) *Sanitizer {
	return &Sanitizer{rewriter: rewriter, logger: logger}
}

// Sanitize asks the model for a policy-compliant rewrite of the prompt. The
// locale hints which language the rewrite should stay in; invalid or empty
// locales fall back to English.
func (s *Sanitizer) Sanitize(ctx context.Context, prompt, locale string) string {
	if s == nil || s.rewriter == nil {
		return prompt
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	instruction := fmt.Sprintf(
		"Rewrite the following media generation prompt so it complies with content safety policies. "+
			"Remove or soften anything that could be flagged (violence, explicit content, real people, trademarks) "+
			"while keeping the commercial and creative intent intact. "+
			"Answer in language %s with the rewritten prompt only, no explanation.\n\nPrompt:\n%s",
		tag.String(), prompt,
	)

	rewritten, err := s.rewriter.Generate(ctx, instruction)
	if err != nil {
		s.logger.Warn().Err(err).Msg("prompt sanitize failed, using original")
		return prompt
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return prompt
	}
	return rewritten
}
