package task

import (
	"fmt"
	"slices"
)

// WordFill is a text with blanks to be filled from a shared word bank.
type WordFill struct {
	Meta
	Row
}

// Row is one line of a fill-in text. Text and blanks interleave, starting with text
// when StartWithText is set.
type Row struct {
	Text            []string `json:"text"`
	Blanks          []string `json:"blanks"`
	StartWithText   bool     `json:"startWithText"`
	PossibleAnswers []string `json:"possibleAnswers,omitempty"`
}

type WordFillAnswer struct {
	Answers []string `json:"answers"`
}

func (*WordFill) Kind() Kind       { return KindWordFill }
func (*WordFill) isTask()          {}
func (*WordFillAnswer) Kind() Kind { return KindWordFill }
func (*WordFillAnswer) isAnswer()  {}

func (t *WordFill) accept(a *WordFillAnswer) (float64, error) {
	if a == nil {
		return scoreList(t.Blanks, nil)
	}
	return scoreList(t.Blanks, a.Answers)
}

// ChoiceWordFill is a text where each blank is picked from its own set of choices.
type ChoiceWordFill struct {
	Meta
	ChoiceRow
}

type ChoiceRow struct {
	Text          []string     `json:"text"`
	Choices       []WordChoice `json:"choices"`
	StartWithText bool         `json:"startWithText"`
}

type WordChoice struct {
	Correct   string   `json:"correct"`
	Incorrect []string `json:"incorrect"`
}

func (r ChoiceRow) correct() []string {
	out := make([]string, len(r.Choices))
	for i, c := range r.Choices {
		out[i] = c.Correct
	}
	return out
}

type ChoiceWordFillAnswer struct {
	Answers []string `json:"answers"`
}

func (*ChoiceWordFill) Kind() Kind       { return KindChoiceWordFill }
func (*ChoiceWordFill) isTask()          {}
func (*ChoiceWordFillAnswer) Kind() Kind { return KindChoiceWordFill }
func (*ChoiceWordFillAnswer) isAnswer()  {}

func (t *ChoiceWordFill) accept(a *ChoiceWordFillAnswer) (float64, error) {
	if a == nil {
		return scoreList(t.correct(), nil)
	}
	return scoreList(t.correct(), a.Answers)
}

// WordConnect pairs every left word with a right word. Mapping holds the correct
// left index → right index pairs.
type WordConnect struct {
	Meta
	Left    []string    `json:"leftWords"`
	Right   []string    `json:"rightWords"`
	Mapping map[int]int `json:"correctMapping"`
}

type WordConnectAnswer struct {
	Mapping map[int]int `json:"answerMapping"`
}

func (*WordConnect) Kind() Kind       { return KindWordConnect }
func (*WordConnect) isTask()          {}
func (*WordConnectAnswer) Kind() Kind { return KindWordConnect }
func (*WordConnectAnswer) isAnswer()  {}

func (t *WordConnect) accept(a *WordConnectAnswer) (float64, error) {
	if len(t.Mapping) == 0 {
		return 1, nil
	}
	if a == nil || len(a.Mapping) == 0 {
		return 0, nil
	}

	var correct int
	for l, r := range t.Mapping {
		if got, ok := a.Mapping[l]; ok && got == r {
			correct++
		}
	}

	return ratio(correct, len(t.Mapping)), nil
}

// ChronologicalOrder asks for sentences in their correct order.
type ChronologicalOrder struct {
	Meta
	Sentences []string `json:"sentences"`
}

type ChronologicalOrderAnswer struct {
	Answers []string `json:"answers"`
}

func (*ChronologicalOrder) Kind() Kind       { return KindChronologicalOrder }
func (*ChronologicalOrder) isTask()          {}
func (*ChronologicalOrderAnswer) Kind() Kind { return KindChronologicalOrder }
func (*ChronologicalOrderAnswer) isAnswer()  {}

func (t *ChronologicalOrder) accept(a *ChronologicalOrderAnswer) (float64, error) {
	if a == nil {
		return scoreList(t.Sentences, nil)
	}
	return scoreList(t.Sentences, a.Answers)
}

// OptionSelect asks to select every correct option. Each option is one sub-item,
// right when its selection state matches its correctness.
type OptionSelect struct {
	Meta
	Content   string   `json:"content"`
	Correct   []string `json:"correctAnswers"`
	Incorrect []string `json:"incorrectAnswers"`
}

type OptionSelectAnswer struct {
	Answers []string `json:"answers"`
}

func (*OptionSelect) Kind() Kind       { return KindOptionSelect }
func (*OptionSelect) isTask()          {}
func (*OptionSelectAnswer) Kind() Kind { return KindOptionSelect }
func (*OptionSelectAnswer) isAnswer()  {}

func (t *OptionSelect) accept(a *OptionSelectAnswer) (float64, error) {
	total := len(t.Correct) + len(t.Incorrect)
	if total == 0 {
		return 1, nil
	}
	if a == nil || len(a.Answers) == 0 {
		return 0, nil
	}

	var correct int
	for _, o := range t.Correct {
		if slices.Contains(a.Answers, o) {
			correct++
		}
	}
	for _, o := range t.Incorrect {
		if !slices.Contains(a.Answers, o) {
			correct++
		}
	}

	return ratio(correct, total), nil
}

// ListWordFill is a list of WordFill rows graded as one task.
type ListWordFill struct {
	Meta
	Rows []Row `json:"rows"`
}

// ListChoiceWordFill is a list of ChoiceWordFill rows graded as one task.
type ListChoiceWordFill struct {
	Meta
	Rows []ChoiceRow `json:"rows"`
}

// ListSentenceForming is a list of sentences whose words must be put in order.
type ListSentenceForming struct {
	Meta
	Rows [][]string `json:"rows"`
}

type ListWordFillAnswer struct {
	Answers [][]string `json:"answers"`
}

type ListChoiceWordFillAnswer struct {
	Answers [][]string `json:"answers"`
}

type ListSentenceFormingAnswer struct {
	Answers [][]string `json:"answers"`
}

func (*ListWordFill) Kind() Kind              { return KindListWordFill }
func (*ListWordFill) isTask()                 {}
func (*ListWordFillAnswer) Kind() Kind        { return KindListWordFill }
func (*ListWordFillAnswer) isAnswer()         {}
func (*ListChoiceWordFill) Kind() Kind        { return KindListChoiceWordFill }
func (*ListChoiceWordFill) isTask()           {}
func (*ListChoiceWordFillAnswer) Kind() Kind  { return KindListChoiceWordFill }
func (*ListChoiceWordFillAnswer) isAnswer()   {}
func (*ListSentenceForming) Kind() Kind       { return KindListSentenceForming }
func (*ListSentenceForming) isTask()          {}
func (*ListSentenceFormingAnswer) Kind() Kind { return KindListSentenceForming }
func (*ListSentenceFormingAnswer) isAnswer()  {}

func (t *ListWordFill) accept(a *ListWordFillAnswer) (float64, error) {
	want := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		want[i] = r.Blanks
	}
	if a == nil {
		return scoreRows(want, nil)
	}
	return scoreRows(want, a.Answers)
}

func (t *ListChoiceWordFill) accept(a *ListChoiceWordFillAnswer) (float64, error) {
	want := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		want[i] = r.correct()
	}
	if a == nil {
		return scoreRows(want, nil)
	}
	return scoreRows(want, a.Answers)
}

func (t *ListSentenceForming) accept(a *ListSentenceFormingAnswer) (float64, error) {
	if a == nil {
		return scoreRows(t.Rows, nil)
	}
	return scoreRows(t.Rows, a.Answers)
}

// scoreList grades positional answers against want.
func scoreList(want, got []string) (float64, error) {
	if len(want) == 0 {
		return 1, nil
	}
	if len(got) == 0 {
		return 0, nil
	}
	if len(got) != len(want) {
		return 0, fmt.Errorf("%w: %d, %d", ErrAnswerLengthMismatch, len(got), len(want))
	}

	return ratio(countEqual(want, got), len(want)), nil
}

// scoreRows grades row answers across all rows at once. A nil or missing row is
// unscored but still counts in the denominator.
func scoreRows(want, got [][]string) (float64, error) {
	var total int
	for _, r := range want {
		total += len(r)
	}
	if total == 0 {
		return 1, nil
	}
	if got == nil {
		return 0, nil
	}
	if len(got) > len(want) {
		return 0, fmt.Errorf("%w: %d rows, %d", ErrAnswerLengthMismatch, len(got), len(want))
	}

	var correct int
	for i, row := range got {
		if row == nil {
			continue
		}
		if len(row) != len(want[i]) {
			return 0, fmt.Errorf("%w: row %d: %d, %d", ErrAnswerLengthMismatch, i, len(row), len(want[i]))
		}
		correct += countEqual(want[i], row)
	}

	return ratio(correct, total), nil
}

func countEqual(want, got []string) int {
	var n int
	for i := range want {
		if want[i] == got[i] {
			n++
		}
	}
	return n
}

func ratio(n, total int) float64 {
	return float64(n) / float64(total)
}
