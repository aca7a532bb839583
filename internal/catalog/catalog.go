package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

// Catalog is the immutable ordered list of interview questions. It is built
// once at startup; the engine addresses questions by index and never copies
// them.
type Catalog struct {
	questions []entity.Question
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// New builds a catalog from an ordered question list. The last question must
// be the only one marked final.
func New(questions []entity.Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one question")
	}

	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %q has no text", q.ID)
		}
		isLast := i == len(questions)-1
		if q.IsFinal != isLast {
			return nil, fmt.Errorf("question %q: is_final must be set on the last question only", q.ID)
		}
	}

	qs := make([]entity.Question, len(questions))
	copy(qs, questions)

	return &Catalog{questions: qs}, nil
}

// Default returns the built-in onboarding interview.
func Default() *Catalog {
	c, err := New(defaultQuestions())
	if err != nil {
		// The built-in list is validated by tests; reaching this is a bug.
		panic(err)
	}
	return c
}

func defaultQuestions() []entity.Question {
	return []entity.Question{
		{
			ID:      "company_name",
			Text:    "Welcome! To get your business onboarded, I have a few questions. What is your company name?",
			Extract: []string{entity.FieldCompanyName},
		},
		{
			ID:      "registration_number",
			Text:    "Thanks! What is the company registration number for {company_name}?",
			Extract: []string{entity.FieldRegistrationNumber},
		},
		{
			ID:      "tax_number",
			Text:    "Got it. What is your company's tax number?",
			Extract: []string{entity.FieldTaxNumber},
		},
		{
			ID:      "contact_person",
			Text:    "Who should we list as the primary contact? Please share their full name.",
			Extract: []string{entity.ContactFirstName, entity.ContactLastName},
		},
		{
			ID:      "contact_details",
			Text:    "Almost done. What email address and phone number can we use to reach {first_name}?",
			Extract: []string{entity.ContactEmail, entity.ContactPhone},
			IsFinal: true,
		},
	}
}

func (c *Catalog) Len() int {
	return len(c.questions)
}

// QuestionAt returns the question at a 0-based index. An index outside
// [0, Len) is a caller bug and yields ErrIndexOutOfRange.
func (c *Catalog) QuestionAt(index int) (*entity.Question, error) {
	if index < 0 || index >= len(c.questions) {
		return nil, fmt.Errorf("%w: index %d, catalog size %d", entity.ErrIndexOutOfRange, index, len(c.questions))
	}
	return &c.questions[index], nil
}

// Render substitutes known-field placeholders into the question text.
// Substitution is best effort: if any referenced field is missing the
// unparameterized text is returned unchanged, never an error.
func (c *Catalog) Render(q *entity.Question, known map[string]string) string {
	matches := placeholderPattern.FindAllStringSubmatch(q.Text, -1)
	if len(matches) == 0 {
		return q.Text
	}

	for _, m := range matches {
		if v, ok := known[m[1]]; !ok || v == "" {
			return q.Text
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(q.Text, func(ph string) string {
		name := strings.Trim(ph, "{}")
		return known[name]
	})
}
