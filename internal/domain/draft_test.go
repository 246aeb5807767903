package domain

import (
	"errors"
	"fmt"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func completeDraft(n int) Draft {
	d := NewDraft()
	d.Title = "Capitals"
	d.CategoryID = 5
	d.QuestionCount = n
	for i := 1; i <= n; i++ {
		d.Questions[i] = DraftQuestion{Text: fmt.Sprintf("Question %d", i), Answer: boolPtr(i%2 == 0)}
	}
	return d
}

func TestValidateAcceptsCompleteDraft(t *testing.T) {
	for n := MinQuestions; n <= MaxQuestions; n++ {
		if err := completeDraft(n).Validate(); err != nil {
			t.Fatalf("count %d: expected valid draft, got %v", n, err)
		}
	}
}

func TestValidateRejectsEachMissingField(t *testing.T) {
	for n := MinQuestions; n <= MaxQuestions; n++ {
		for i := 1; i <= n; i++ {
			d := completeDraft(n)
			q := d.Questions[i]
			q.Text = "   "
			d.Questions[i] = q
			assertField(t, d.Validate(), fmt.Sprintf("questions.%d.text", i))

			d = completeDraft(n)
			q = d.Questions[i]
			q.Answer = nil
			d.Questions[i] = q
			assertField(t, d.Validate(), fmt.Sprintf("questions.%d.answer", i))
		}
	}
}

func TestValidateOrder(t *testing.T) {
	d := NewDraft()
	d.QuestionCount = 3
	assertField(t, d.Validate(), "title")

	d.Title = "t"
	assertField(t, d.Validate(), "categoryId")

	d.CategoryID = 42
	assertField(t, d.Validate(), "categoryId")

	d.CategoryID = 1
	d.Questions[2] = DraftQuestion{Text: "filled", Answer: boolPtr(true)}
	assertField(t, d.Validate(), "questions.1.text")

	d.Questions[1] = DraftQuestion{Text: "first"}
	assertField(t, d.Validate(), "questions.1.answer")
}

func TestValidateIgnoresSlotsAboveCount(t *testing.T) {
	d := completeDraft(2)
	d.Questions[3] = DraftQuestion{}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected hidden slot to be ignored, got %v", err)
	}
	if got := len(d.Ready()); got != 2 {
		t.Fatalf("expected 2 ready questions, got %d", got)
	}
}

func TestApplyClampsAndKeepsHiddenSlots(t *testing.T) {
	d := NewDraft()
	text := "kept"
	count := 12
	d.Apply(DraftPatch{QuestionCount: &count, Questions: map[int]DraftQuestionPatch{
		4:  {Text: &text},
		11: {Text: &text},
	}})
	if d.QuestionCount != MaxQuestions {
		t.Fatalf("expected clamp to %d, got %d", MaxQuestions, d.QuestionCount)
	}
	if _, ok := d.Questions[11]; ok {
		t.Fatalf("expected out-of-range slot to be ignored")
	}

	count = 0
	d.Apply(DraftPatch{QuestionCount: &count})
	if d.QuestionCount != MinQuestions {
		t.Fatalf("expected clamp to %d, got %d", MinQuestions, d.QuestionCount)
	}
	if d.Questions[4].Text != "kept" {
		t.Fatalf("expected slot 4 to survive shrinking, got %+v", d.Questions[4])
	}
}

func assertField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error on %s, got %v", field, err)
	}
	if verr.Field != field {
		t.Fatalf("expected failure on %s, got %s (%s)", field, verr.Field, verr.Message)
	}
}
