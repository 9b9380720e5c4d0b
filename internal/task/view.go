package task

import (
	"math/rand/v2"
)

// Shuffler permutes n elements through swap. rand.Shuffle satisfies it.
type Shuffler func(n int, swap func(i, j int))

type (
	WordFillView struct {
		Text            []string `json:"text"`
		BlankCount      int      `json:"emptySpaceCount"`
		StartWithText   bool     `json:"startWithText"`
		PossibleAnswers []string `json:"possibleAnswers"`
	}

	ChoiceWordFillView struct {
		Text          []string   `json:"text"`
		Choices       [][]string `json:"wordChoices"`
		StartWithText bool       `json:"startWithText"`
	}

	WordConnectView struct {
		Left  []string `json:"leftWords"`
		Right []string `json:"rightWords"`
	}

	ChronologicalOrderView struct {
		Sentences []string `json:"sentences"`
	}

	OptionSelectView struct {
		Content string   `json:"content"`
		Options []string `json:"answers"`
	}

	ListWordFillView struct {
		Rows []WordFillView `json:"rows"`
	}

	ListChoiceWordFillView struct {
		Rows []ChoiceWordFillView `json:"rows"`
	}

	ListSentenceFormingView struct {
		Words [][]string `json:"words"`
	}
)

// View returns the client-facing content of t: correct answers are withheld and
// anything whose order would reveal them is shuffled.
func View(t Task, shuffle Shuffler) any {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	switch t := t.(type) {
	case *WordFill:
		return wordFillView(t.Row, shuffle)
	case *ChoiceWordFill:
		return choiceView(t.ChoiceRow, shuffle)
	case *WordConnect:
		return WordConnectView{Left: clone(t.Left), Right: clone(t.Right)}
	case *ChronologicalOrder:
		return ChronologicalOrderView{Sentences: shuffled(t.Sentences, shuffle)}
	case *OptionSelect:
		opts := append(clone(t.Correct), t.Incorrect...)
		return OptionSelectView{Content: t.Content, Options: shuffled(opts, shuffle)}
	case *ListWordFill:
		v := ListWordFillView{Rows: make([]WordFillView, len(t.Rows))}
		for i, r := range t.Rows {
			v.Rows[i] = wordFillView(r, shuffle)
		}
		return v
	case *ListChoiceWordFill:
		v := ListChoiceWordFillView{Rows: make([]ChoiceWordFillView, len(t.Rows))}
		for i, r := range t.Rows {
			v.Rows[i] = choiceView(r, shuffle)
		}
		return v
	case *ListSentenceForming:
		v := ListSentenceFormingView{Words: make([][]string, len(t.Rows))}
		for i, r := range t.Rows {
			v.Words[i] = shuffled(r, shuffle)
		}
		return v
	default:
		return nil
	}
}

func wordFillView(r Row, shuffle Shuffler) WordFillView {
	possible := r.PossibleAnswers
	if len(possible) == 0 {
		possible = r.Blanks
	}

	return WordFillView{
		Text:            clone(r.Text),
		BlankCount:      len(r.Blanks),
		StartWithText:   r.StartWithText,
		PossibleAnswers: shuffled(possible, shuffle),
	}
}

func choiceView(r ChoiceRow, shuffle Shuffler) ChoiceWordFillView {
	v := ChoiceWordFillView{
		Text:          clone(r.Text),
		Choices:       make([][]string, len(r.Choices)),
		StartWithText: r.StartWithText,
	}

	for i, c := range r.Choices {
		v.Choices[i] = shuffled(append([]string{c.Correct}, c.Incorrect...), shuffle)
	}

	return v
}

func shuffled(s []string, shuffle Shuffler) []string {
	out := clone(s)
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
