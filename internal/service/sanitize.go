package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// MaxSystemPromptLength caps caller-supplied system prompts, in characters.
const MaxSystemPromptLength = 5000

var unsafeQueryChars = regexp.MustCompile("[^\\p{L}\\p{N}_\\s\\-.,!?()\\[\\]{}:;\"'@#$%^&*+=<>/\\\\|`~]")

// SanitizeQuery replaces characters outside letters, digits, whitespace and a
// fixed punctuation set with spaces, then collapses whitespace runs. It is
// idempotent.
func SanitizeQuery(q string) string {
	if !utf8.ValidString(q) {
		q = strings.ToValidUTF8(q, " ")
	}
	return strings.Join(strings.Fields(unsafeQueryChars.ReplaceAllString(q, " ")), " ")
}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above|prior)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|above|prior)`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)act\s+as\s+if`),
	regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)`),
	regexp.MustCompile(`(?i)show\s+me\s+(your|the)\s+(system\s+)?prompt`),
	regexp.MustCompile(`(?i)what\s+(is|are)\s+your\s+instructions`),
	regexp.MustCompile(`(?i)reveal\s+your`),
	regexp.MustCompile(`(?i)<\s*/?system\s*>`),
	regexp.MustCompile(`(?i)<\s*/?user\s*>`),
	regexp.MustCompile(`(?i)<\s*/?assistant\s*>`),
}

var (
	scriptTags = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
)

// SanitizeSystemPrompt strips known prompt-injection phrases and HTML from a
// caller-supplied system prompt. Prompts longer than MaxSystemPromptLength are
// rejected rather than truncated.
func SanitizeSystemPrompt(p string) (string, error) {
	if utf8.RuneCountInString(p) > MaxSystemPromptLength {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "system prompt exceeds maximum length")
	}
	for _, re := range injectionPatterns {
		p = re.ReplaceAllString(p, "")
	}
	p = scriptTags.ReplaceAllString(p, "")
	p = htmlTags.ReplaceAllString(p, "")
	return strings.TrimSpace(p), nil
}
