package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Injection patterns — SQL/NoSQL fragments that should never appear in a user question.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

const minQuestionLength = 3

// ValidateChunk checks a chunk at the pipeline exit gate, before it is
// written into a snapshot. Classifiers only produce whole chunks, so a
// failure here means a bug upstream, not bad input.
func ValidateChunk(c Chunk) error {
	if c.Content == "" {
		return NewValidationError("page_content", "", ErrEmptyContent)
	}
	if len(c.Metadata) == 0 {
		return fmt.Errorf("validate: metadata is empty")
	}
	st, _ := c.Metadata["source_type"].(string)
	if !ValidSourceTypes[SourceType(st)] {
		return NewValidationError("source_type", st, ErrUnknownSource)
	}
	return nil
}

// ValidateQuestion checks a user question at the chat API entry point.
func ValidateQuestion(q string) error {
	text := strings.TrimSpace(q)

	if utf8.RuneCountInString(text) < minQuestionLength {
		return NewValidationError("question", text, ErrQuestionTooShort)
	}

	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError("question", text, ErrQuestionInjection)
		}
	}

	return nil
}
