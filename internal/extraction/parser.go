package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

// Parser decodes the model's raw reply into the two-key shape the system
// instruction demands. Model output is untrusted text: it is only ever
// passed through the JSON decoder, never evaluated, and anything that does
// not match the expected shape fails closed with ErrMalformedModelOutput.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

type rawReply struct {
	Message       string            `json:"message"`
	ExtractedInfo map[string]string `json:"extracted_info"`
}

// Parse extracts the JSON object from the raw model output and decodes it
// strictly. Markdown fences and stray prose around the object are tolerated;
// missing keys, unknown keys or a wrong shape are not.
func (p *Parser) Parse(raw string) (*entity.ModelReply, error) {
	body, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	// Key presence has to be checked before decoding into the struct, since
	// encoding/json happily leaves absent keys at their zero value.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedModelOutput, err)
	}
	if _, ok := keys["message"]; !ok {
		return nil, fmt.Errorf("%w: missing key %q", entity.ErrMalformedModelOutput, "message")
	}
	if _, ok := keys["extracted_info"]; !ok {
		return nil, fmt.Errorf("%w: missing key %q", entity.ErrMalformedModelOutput, "extracted_info")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var reply rawReply
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedModelOutput, err)
	}

	if strings.TrimSpace(reply.Message) == "" {
		return nil, fmt.Errorf("%w: empty message", entity.ErrMalformedModelOutput)
	}
	if reply.ExtractedInfo == nil {
		reply.ExtractedInfo = make(map[string]string)
	}

	return &entity.ModelReply{
		Message:       reply.Message,
		ExtractedInfo: reply.ExtractedInfo,
	}, nil
}

// extractObject returns the outermost JSON object in the raw text, skipping
// markdown code fences and any prose before or after it.
func extractObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty output", entity.ErrMalformedModelOutput)
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", entity.ErrMalformedModelOutput)
	}

	return []byte(s[start : end+1]), nil
}

// SplitFullName maps a free-text full name onto the first_name/last_name
// pair the interview stores. Extra middle tokens join the last name.
func SplitFullName(full string) map[string]string {
	fields := strings.Fields(full)
	out := make(map[string]string, 2)

	switch {
	case len(fields) == 0:
		return out
	case len(fields) == 1:
		out[entity.ContactFirstName] = fields[0]
	default:
		out[entity.ContactFirstName] = fields[0]
		out[entity.ContactLastName] = strings.Join(fields[1:], " ")
	}

	return out
}
