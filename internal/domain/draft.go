package domain

import (
	"fmt"
	"strings"
)

const (
	MinQuestions = 1
	MaxQuestions = 10
)

// DraftQuestion is one editable question slot. Answer stays nil until the
// author picks true or false.
type DraftQuestion struct {
	Text   string `json:"text"`
	Answer *bool  `json:"answer,omitempty"`
}

// Draft is the in-progress quiz held by the authoring workflow. Slots above
// QuestionCount are kept so shrinking and re-growing the count loses nothing.
type Draft struct {
	Title         string                `json:"title"`
	CategoryID    int                   `json:"categoryId"`
	QuestionCount int                   `json:"questionCount"`
	Questions     map[int]DraftQuestion `json:"questions"`
}

// NewDraft returns an empty draft with a single question slot.
func NewDraft() Draft {
	return Draft{QuestionCount: MinQuestions, Questions: make(map[int]DraftQuestion)}
}

// DraftPatch is a partial update. Nil fields are left untouched.
type DraftPatch struct {
	Title         *string                    `json:"title,omitempty"`
	CategoryID    *int                       `json:"categoryId,omitempty"`
	QuestionCount *int                       `json:"questionCount,omitempty"`
	Questions     map[int]DraftQuestionPatch `json:"questions,omitempty"`
}

type DraftQuestionPatch struct {
	Text   *string `json:"text,omitempty"`
	Answer *bool   `json:"answer,omitempty"`
}

// Apply mutates the draft. Question indices outside 1..MaxQuestions are ignored.
func (d *Draft) Apply(p DraftPatch) {
	if d.Questions == nil {
		d.Questions = make(map[int]DraftQuestion)
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
	}
	if p.QuestionCount != nil {
		d.QuestionCount = ClampQuestionCount(*p.QuestionCount)
	}
	for i, qp := range p.Questions {
		if i < MinQuestions || i > MaxQuestions {
			continue
		}
		q := d.Questions[i]
		if qp.Text != nil {
			q.Text = *qp.Text
		}
		if qp.Answer != nil {
			v := *qp.Answer
			q.Answer = &v
		}
		d.Questions[i] = q
	}
}

// ClampQuestionCount bounds n to the allowed slider range.
func ClampQuestionCount(n int) int {
	if n < MinQuestions {
		return MinQuestions
	}
	if n > MaxQuestions {
		return MaxQuestions
	}
	return n
}

// Validate checks the draft in a fixed order and reports the first failure:
// title, category, then each question's text followed by its answer.
func (d Draft) Validate() error {
	if err := ValidateTitle(d.Title); err != nil {
		return err
	}
	if err := ValidateCategory(d.CategoryID); err != nil {
		return err
	}
	for i := 1; i <= ClampQuestionCount(d.QuestionCount); i++ {
		q := d.Questions[i]
		if strings.TrimSpace(q.Text) == "" {
			return Invalid(fmt.Sprintf("questions.%d.text", i), fmt.Sprintf("Please enter the text for question %d", i))
		}
		if q.Answer == nil {
			return Invalid(fmt.Sprintf("questions.%d.answer", i), fmt.Sprintf("Please select an answer for question %d", i))
		}
	}
	return nil
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return Invalid("title", "Please enter a title for the quiz")
	}
	return nil
}

func ValidateCategory(id int) error {
	if id == 0 {
		return Invalid("categoryId", "Please select a category")
	}
	if _, ok := CategoryByID(id); !ok {
		return Invalid("categoryId", "Please select a valid category")
	}
	return nil
}

// Ready returns the questions 1..QuestionCount of a validated draft, in order.
func (d Draft) Ready() []DraftQuestion {
	n := ClampQuestionCount(d.QuestionCount)
	out := make([]DraftQuestion, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, d.Questions[i])
	}
	return out
}
