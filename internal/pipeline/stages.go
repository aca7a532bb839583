package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

// Stage inspects or rewrites the draft reply. Stages only touch the turn
// context; they hold no mutable state of their own.
type Stage interface {
	Name() string
	Apply(tc *entity.TurnContext) *entity.TurnContext
}

// splitSentences cuts text into sentences. Each segment keeps its
// terminating punctuation and the whitespace that follows it, so surviving
// sentences concatenate back together byte-verbatim. A terminator only ends
// a sentence when the next word starts a new one (uppercase, digit or an
// opening quote); "e.g. lowercase" stays in one piece.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	terminated := false

	for _, r := range text {
		if terminated && !unicode.IsSpace(r) {
			if unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\'' {
				sentences = append(sentences, current.String())
				current.Reset()
			}
			terminated = false
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			terminated = true
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// SingleQuestionStage guarantees the user is asked at most one question per
// turn. A draft with two or more question marks is cut down to the
// acknowledgment sentences up to and including the first question.
type SingleQuestionStage struct{}

func (SingleQuestionStage) Name() string { return "single_question" }

func (SingleQuestionStage) Apply(tc *entity.TurnContext) *entity.TurnContext {
	if strings.Count(tc.Reply, "?") <= 1 {
		return tc
	}

	sentences := splitSentences(tc.Reply)
	var kept []string
	for _, s := range sentences {
		kept = append(kept, s)
		if strings.Contains(s, "?") {
			break
		}
	}

	tc.Reply = strings.TrimSpace(strings.Join(kept, ""))
	return tc
}

// DefaultAdvicePatterns returns the built-in advice phrase table. The live table is
// configuration data; this is the fallback when none is configured.
func DefaultAdvicePatterns() []string {
	return []string{
		`\byou should\b`,
		`\byou could\b`,
		`\byou might want to\b`,
		`\bi recommend\b`,
		`\bi suggest\b`,
		`\bi advise\b`,
		`\bwe recommend\b`,
		`\bit would be best\b`,
		`\bit is advisable\b`,
		`\bit's advisable\b`,
		`\bconsider\b`,
		`\bmake sure to\b`,
		`\bdon't forget to\b`,
	}
}

// RemoveAdviceStage drops any sentence that matches a configured
// advice-giving phrase. The assistant reports and acknowledges; it never
// prescribes action.
type RemoveAdviceStage struct {
	patterns []*regexp.Regexp
}

func NewRemoveAdviceStage(patterns []string) (*RemoveAdviceStage, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &RemoveAdviceStage{patterns: compiled}, nil
}

func (*RemoveAdviceStage) Name() string { return "remove_advice" }

func (s *RemoveAdviceStage) Apply(tc *entity.TurnContext) *entity.TurnContext {
	sentences := splitSentences(tc.Reply)
	kept := sentences[:0]

	for _, sentence := range sentences {
		if s.isAdvice(sentence) {
			continue
		}
		kept = append(kept, sentence)
	}

	tc.Reply = strings.TrimSpace(strings.Join(kept, ""))
	return tc
}

func (s *RemoveAdviceStage) isAdvice(sentence string) bool {
	for _, re := range s.patterns {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}

// FormatStage is the final gate: an empty reply is invalid, and every
// non-final turn must still carry a question after the rewrites above.
type FormatStage struct{}

func (FormatStage) Name() string { return "format" }

func (FormatStage) Apply(tc *entity.TurnContext) *entity.TurnContext {
	if strings.TrimSpace(tc.Reply) == "" {
		tc.Result = entity.ValidationInvalid
		tc.ErrorMessage = "assistant reply is empty"
		return tc
	}

	final := tc.Question != nil && tc.Question.IsFinal
	if !final && !strings.Contains(tc.Reply, "?") {
		tc.Result = entity.ValidationInvalid
		tc.ErrorMessage = "assistant reply does not ask the next question"
		return tc
	}

	return tc
}
