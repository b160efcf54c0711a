package quiz

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/victornm/satsquest/internal/domain"
)

// fencedBlock skips the info string of the fence, whatever its case ("json", "JSON", "json5").
var fencedBlock = regexp.MustCompile("(?s)```[\\w+-]*\\s*(.*?)\\s*```")

var errNoQuestions = stderrors.New("no questions array")

type rawQuiz struct {
	Questions []json.RawMessage `json:"questions"`
}

// rawQuestion keeps fields untyped so that a wrong JSON type discards the element instead of the batch.
type rawQuestion struct {
	Q       any `json:"q"`
	A       any `json:"a"`
	Correct any `json:"correct"`
}

// ParseQuestions decodes oracle output into validated questions. The output must be a JSON object
// with a "questions" array, either as is or inside the first fenced code block. Malformed elements
// are dropped, an error is returned only when the document itself can't be decoded.
func ParseQuestions(text string) ([]domain.Question, error) {
	z, err := decodeQuiz(text)
	if err != nil {
		return nil, err
	}

	qs := make([]domain.Question, 0, len(z.Questions))
	for _, raw := range z.Questions {
		if q, ok := decodeQuestion(raw); ok {
			qs = append(qs, q)
		}
	}

	return Validate(qs), nil
}

// Validate returns the questions of qs that are playable, in order. Validate(Validate(qs)) equals Validate(qs).
func Validate(qs []domain.Question) []domain.Question {
	valid := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		if q.Valid() {
			valid = append(valid, q)
		}
	}

	return valid
}

func decodeQuiz(text string) (*rawQuiz, error) {
	var z *rawQuiz
	err := decodeDocument(text, func(s string) (err error) {
		z, err = unmarshalQuiz(s)
		return err
	})
	return z, err
}

// decodeDocument runs decode on text, then on the content of its first fenced block.
func decodeDocument(text string, decode func(s string) error) error {
	err := decode(strings.TrimSpace(text))
	if err == nil {
		return nil
	}

	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return fmt.Errorf("parse: no fenced block after direct parse failed: %w", err)
	}

	if err := decode(m[1]); err != nil {
		return fmt.Errorf("parse: fenced block: %w", err)
	}

	return nil
}

func unmarshalQuiz(s string) (*rawQuiz, error) {
	var z rawQuiz
	if err := json.Unmarshal([]byte(s), &z); err != nil {
		return nil, err
	}

	if z.Questions == nil {
		return nil, errNoQuestions
	}

	return &z, nil
}

func decodeQuestion(raw json.RawMessage) (domain.Question, bool) {
	var rq rawQuestion
	if err := json.Unmarshal(raw, &rq); err != nil {
		return domain.Question{}, false
	}

	return toQuestion(rq.Q, rq.A, rq.Correct)
}

// toQuestion type-checks decoded JSON values, any non-string makes the question malformed.
func toQuestion(q, a, correct any) (domain.Question, bool) {
	text, ok := q.(string)
	if !ok {
		return domain.Question{}, false
	}

	c, ok := correct.(string)
	if !ok {
		return domain.Question{}, false
	}

	items, ok := a.([]any)
	if !ok {
		return domain.Question{}, false
	}

	opts := make([]string, 0, len(items))
	for _, it := range items {
		o, ok := it.(string)
		if !ok {
			return domain.Question{}, false
		}
		opts = append(opts, o)
	}

	return domain.Question{Text: text, Options: opts, Correct: c}, true
}

// listQuestion is the element of the list asked for by direct generation.
type listQuestion struct {
	QuestionText  any `json:"question_text"`
	Options       any `json:"options"`
	CorrectAnswer any `json:"correct_answer"`
}

// ParseQuestionList decodes oracle output shaped as a JSON array of
// {"question_text", "options", "correct_answer"} objects, as is or inside the first fenced block.
// Like ParseQuestions it drops malformed elements and fails only on an undecodable document.
func ParseQuestionList(text string) ([]domain.Question, error) {
	var items []json.RawMessage
	err := decodeDocument(text, func(s string) error {
		items = nil
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return err
		}
		if items == nil {
			return errNoQuestions
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	qs := make([]domain.Question, 0, len(items))
	for _, raw := range items {
		var lq listQuestion
		if err := json.Unmarshal(raw, &lq); err != nil {
			continue
		}
		if q, ok := toQuestion(lq.QuestionText, lq.Options, lq.CorrectAnswer); ok {
			qs = append(qs, q)
		}
	}

	return Validate(qs), nil
}
