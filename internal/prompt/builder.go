package prompt

import (
	"fmt"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/catalog"
	"github.com/bizintake/onboarding-backend/internal/entity"
)

// NoMoreQuestions is the terminal sentinel embedded in the prompt when the
// current question is the last one.
const NoMoreQuestions = "No more questions."

const systemInstruction = `You are an onboarding assistant collecting business details through a short structured interview. You ask one question at a time and never give advice.

Read the user's reply, extract the requested fields, and acknowledge what was provided.

Respond with a single JSON object with exactly two keys and nothing else:
{
  "extracted_info": {"<field_name>": "<value>"},
  "message": "<acknowledgment followed by the next question>"
}

Rules:
- extracted_info maps field names to string values. Only include fields the user actually provided.
- When the user gives a person's full name, split it into two separate fields: "first_name" and "last_name".
- message must acknowledge the user's answer and then ask the next question exactly as given to you, verbatim, and no other question.
- If there is no next question, message must acknowledge the answer and thank the user without asking anything.
- Do not give advice, recommendations or suggestions.
- Return ONLY the JSON object, no markdown fences or other text.`

// Builder composes the per-turn instruction sent to the language model. The
// output is a pure function of the conversation state and the new message.
type Builder struct {
	catalog *catalog.Catalog
}

func NewBuilder(c *catalog.Catalog) *Builder {
	return &Builder{catalog: c}
}

// SystemInstruction is the fixed system message accompanying every call.
func (b *Builder) SystemInstruction() string {
	return systemInstruction
}

// Build renders the prompt for one turn: prior history, the current
// question, the user's new message, the fields to extract, and the next
// question pre-rendered with everything extracted so far.
func (b *Builder) Build(userMessage string, convCtx *entity.ConversationContext) (string, error) {
	current, err := b.catalog.QuestionAt(convCtx.CurrentQuestionIndex)
	if err != nil {
		return "", fmt.Errorf("current question: %w", err)
	}

	next := NoMoreQuestions
	if !current.IsFinal {
		nq, err := b.catalog.QuestionAt(convCtx.CurrentQuestionIndex + 1)
		if err != nil {
			return "", fmt.Errorf("next question: %w", err)
		}
		next = b.catalog.Render(nq, convCtx.ExtractedInfo)
	}

	var sb strings.Builder

	sb.WriteString("Conversation so far:\n")
	if len(convCtx.History) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, h := range convCtx.History {
		fmt.Fprintf(&sb, "Q: %s | A: %s\n", h.Question, h.UserResponse)
	}

	fmt.Fprintf(&sb, "\nCurrent question: %s\n", b.catalog.Render(current, convCtx.ExtractedInfo))
	fmt.Fprintf(&sb, "User reply: %s\n", userMessage)
	fmt.Fprintf(&sb, "Fields to extract: %s\n", strings.Join(current.Extract, ", "))
	fmt.Fprintf(&sb, "Next question to ask: %s\n", next)

	return sb.String(), nil
}
