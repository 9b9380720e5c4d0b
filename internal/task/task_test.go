package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/task"
)

func TestScore_WordConnect(t *testing.T) {
	wc := &task.WordConnect{
		Left:    []string{"Lorem", "ipsum", "dolor", "sit", "amet"},
		Right:   []string{"consectetur", "adipiscing", "elit", "sed do", "eiusmod"},
		Mapping: map[int]int{0: 3, 1: 0, 2: 4, 3: 2, 4: 1},
	}

	tests := map[string]struct {
		answer task.Answer
		want   float64
	}{
		"all correct": {
			answer: &task.WordConnectAnswer{Mapping: map[int]int{0: 3, 1: 0, 2: 4, 3: 2, 4: 1}},
			want:   1,
		},
		"all wrong": {
			answer: &task.WordConnectAnswer{Mapping: map[int]int{0: 0, 1: 1, 2: 2, 3: 3, 4: 4}},
			want:   0,
		},
		"partially correct": {
			answer: &task.WordConnectAnswer{Mapping: map[int]int{0: 3, 1: 0, 2: 2, 3: 3, 4: 4}},
			want:   0.4,
		},
		"nil mapping": {
			answer: &task.WordConnectAnswer{},
			want:   0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := task.Score(wc, tt.answer)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// fixtures returns one task of every kind together with an all-wrong answer of the
// right shape.
func fixtures() map[task.Kind]struct {
	task  task.Task
	wrong task.Answer
	empty task.Answer
} {
	return map[task.Kind]struct {
		task  task.Task
		wrong task.Answer
		empty task.Answer
	}{
		task.KindWordFill: {
			task: &task.WordFill{Row: task.Row{
				Text:   []string{"Lorem ", " ipsum ", " dolor"},
				Blanks: []string{"abc", "def"},
			}},
			wrong: &task.WordFillAnswer{Answers: []string{"x", "y"}},
			empty: &task.WordFillAnswer{},
		},
		task.KindChoiceWordFill: {
			task: &task.ChoiceWordFill{ChoiceRow: task.ChoiceRow{
				Text: []string{"sit ", " amet"},
				Choices: []task.WordChoice{
					{Correct: "ghi", Incorrect: []string{"qwe", "poi"}},
				},
			}},
			wrong: &task.ChoiceWordFillAnswer{Answers: []string{"qwe"}},
			empty: &task.ChoiceWordFillAnswer{Answers: []string{}},
		},
		task.KindWordConnect: {
			task:  &task.WordConnect{Mapping: map[int]int{0: 1, 1: 0}},
			wrong: &task.WordConnectAnswer{Mapping: map[int]int{0: 0, 1: 1}},
			empty: &task.WordConnectAnswer{},
		},
		task.KindChronologicalOrder: {
			task:  &task.ChronologicalOrder{Sentences: []string{"a", "b", "c"}},
			wrong: &task.ChronologicalOrderAnswer{Answers: []string{"c", "a", "b"}},
			empty: &task.ChronologicalOrderAnswer{},
		},
		task.KindOptionSelect: {
			task: &task.OptionSelect{
				Content:   "Lorem ipsum dolor sit amet",
				Correct:   []string{"eiusmod", "tempor"},
				Incorrect: []string{"adipiscing", "elit"},
			},
			wrong: &task.OptionSelectAnswer{Answers: []string{"adipiscing", "elit"}},
			empty: &task.OptionSelectAnswer{},
		},
		task.KindListWordFill: {
			task: &task.ListWordFill{Rows: []task.Row{
				{Blanks: []string{"abc", "def"}},
				{Blanks: []string{"ghi"}},
			}},
			wrong: &task.ListWordFillAnswer{Answers: [][]string{{"x", "y"}, {"z"}}},
			empty: &task.ListWordFillAnswer{},
		},
		task.KindListChoiceWordFill: {
			task: &task.ListChoiceWordFill{Rows: []task.ChoiceRow{
				{Choices: []task.WordChoice{{Correct: "abc", Incorrect: []string{"qwe"}}}},
				{Choices: []task.WordChoice{{Correct: "jkl", Incorrect: []string{"poi"}}}},
			}},
			wrong: &task.ListChoiceWordFillAnswer{Answers: [][]string{{"qwe"}, {"poi"}}},
			empty: &task.ListChoiceWordFillAnswer{Answers: [][]string{}},
		},
		task.KindListSentenceForming: {
			task: &task.ListSentenceForming{Rows: [][]string{
				{"Lorem ", " ipsum ", " dolor"},
				{"sit ", " amet"},
			}},
			wrong: &task.ListSentenceFormingAnswer{Answers: [][]string{
				{" dolor", "Lorem ", " ipsum "},
				{" amet", "sit "},
			}},
			empty: &task.ListSentenceFormingAnswer{},
		},
	}
}

func TestScore_EveryKind(t *testing.T) {
	fx := fixtures()
	require.Len(t, fx, len(task.Kinds), "every kind should have a fixture")

	for kind, f := range fx {
		t.Run(string(kind), func(t *testing.T) {
			got, err := task.Score(f.task, task.CorrectAnswer(f.task))
			require.NoError(t, err)
			assert.Equal(t, 1.0, got, "correct content should score 1")

			got, err = task.Score(f.task, f.wrong)
			require.NoError(t, err)
			assert.Equal(t, 0.0, got, "all-wrong answer should score 0")

			got, err = task.Score(f.task, f.empty)
			require.NoError(t, err)
			assert.Equal(t, 0.0, got, "empty answer should score 0")
		})
	}
}

func TestScore_NoSubItemsIsVacuouslyComplete(t *testing.T) {
	tests := map[string]struct {
		task   task.Task
		answer task.Answer
	}{
		"word fill":        {&task.WordFill{}, &task.WordFillAnswer{Answers: []string{"x"}}},
		"choice word fill": {&task.ChoiceWordFill{}, &task.ChoiceWordFillAnswer{}},
		"word connect":     {&task.WordConnect{}, &task.WordConnectAnswer{Mapping: map[int]int{0: 1}}},
		"chronological":    {&task.ChronologicalOrder{}, (*task.ChronologicalOrderAnswer)(nil)},
		"option select":    {&task.OptionSelect{Content: "x"}, &task.OptionSelectAnswer{}},
		"list word fill":   {&task.ListWordFill{Rows: []task.Row{{}, {}}}, &task.ListWordFillAnswer{}},
		"list sentences":   {&task.ListSentenceForming{Rows: [][]string{{}}}, &task.ListSentenceFormingAnswer{Answers: [][]string{nil}}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := task.Score(tt.task, tt.answer)
			require.NoError(t, err)
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestScore_Rows(t *testing.T) {
	lsf := &task.ListSentenceForming{Rows: [][]string{
		{"a", "b", "c"},
		{"d", "e"},
		{"f"},
	}}

	tests := map[string]struct {
		answer  [][]string
		want    float64
		wantErr error
	}{
		"nil row is unscored but counted": {
			answer: [][]string{{"a", "b", "c"}, nil, {"f"}},
			want:   4.0 / 6.0,
		},
		"missing trailing rows are unscored": {
			answer: [][]string{{"a", "b", "c"}},
			want:   3.0 / 6.0,
		},
		"partially correct row": {
			answer: [][]string{{"a", "c", "b"}, {"d", "e"}, {"x"}},
			want:   3.0 / 6.0,
		},
		"too many rows": {
			answer:  [][]string{{"a", "b", "c"}, {"d", "e"}, {"f"}, {"g"}},
			wantErr: task.ErrAnswerLengthMismatch,
		},
		"row of wrong length": {
			answer:  [][]string{{"a", "b"}, {"d", "e"}, {"f"}},
			wantErr: task.ErrAnswerLengthMismatch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := task.Score(lsf, &task.ListSentenceFormingAnswer{Answers: tt.answer})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScore_Errors(t *testing.T) {
	wf := &task.WordFill{Row: task.Row{Blanks: []string{"a", "b"}}}

	_, err := task.Score(wf, &task.ChoiceWordFillAnswer{Answers: []string{"a", "b"}})
	require.ErrorIs(t, err, task.ErrInvalidAnswerType)

	_, err = task.Score(wf, nil)
	require.ErrorIs(t, err, task.ErrInvalidAnswerType)

	_, err = task.Score(wf, &task.WordFillAnswer{Answers: []string{"a"}})
	require.ErrorIs(t, err, task.ErrAnswerLengthMismatch)

	_, err = task.Score(&task.ChronologicalOrder{Sentences: []string{"a"}}, &task.ChronologicalOrderAnswer{Answers: []string{"a", "b"}})
	require.ErrorIs(t, err, task.ErrAnswerLengthMismatch)
}

func TestView_WithholdsAnswers(t *testing.T) {
	noShuffle := func(int, func(i, j int)) {}

	wf := &task.WordFill{Row: task.Row{
		Text:            []string{"Lorem ", " dolor"},
		Blanks:          []string{"ipsum"},
		PossibleAnswers: []string{"ipsum", "amet"},
	}}
	assert.Equal(t, task.WordFillView{
		Text:            []string{"Lorem ", " dolor"},
		BlankCount:      1,
		PossibleAnswers: []string{"ipsum", "amet"},
	}, task.View(wf, noShuffle))

	os := &task.OptionSelect{Content: "c", Correct: []string{"a"}, Incorrect: []string{"b", "d"}}
	v, ok := task.View(os, nil).(task.OptionSelectView)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b", "d"}, v.Options)

	cwf := &task.ChoiceWordFill{ChoiceRow: task.ChoiceRow{
		Choices: []task.WordChoice{{Correct: "x", Incorrect: []string{"y", "z"}}},
	}}
	cv, ok := task.View(cwf, nil).(task.ChoiceWordFillView)
	require.True(t, ok)
	require.Len(t, cv.Choices, 1)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, cv.Choices[0])
}
