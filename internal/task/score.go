package task

import "fmt"

// Score grades answer against t. It fails with ErrInvalidAnswerType when the answer
// belongs to another kind, and with ErrAnswerLengthMismatch when its shape differs.
func Score(t Task, answer Answer) (float64, error) {
	switch t := t.(type) {
	case *WordFill:
		return grade(answer, t.accept)
	case *ChoiceWordFill:
		return grade(answer, t.accept)
	case *WordConnect:
		return grade(answer, t.accept)
	case *ChronologicalOrder:
		return grade(answer, t.accept)
	case *OptionSelect:
		return grade(answer, t.accept)
	case *ListWordFill:
		return grade(answer, t.accept)
	case *ListChoiceWordFill:
		return grade(answer, t.accept)
	case *ListSentenceForming:
		return grade(answer, t.accept)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownKind, t)
	}
}

func grade[A Answer](answer Answer, accept func(A) (float64, error)) (float64, error) {
	a, ok := answer.(A)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAnswerType, kindOf(answer))
	}

	return accept(a)
}

func kindOf(a Answer) string {
	if a == nil {
		return "<nil>"
	}
	return string(a.Kind())
}

// CorrectAnswer builds the answer that scores 1 on t.
func CorrectAnswer(t Task) Answer {
	switch t := t.(type) {
	case *WordFill:
		return &WordFillAnswer{Answers: clone(t.Blanks)}
	case *ChoiceWordFill:
		return &ChoiceWordFillAnswer{Answers: t.correct()}
	case *WordConnect:
		m := make(map[int]int, len(t.Mapping))
		for l, r := range t.Mapping {
			m[l] = r
		}
		return &WordConnectAnswer{Mapping: m}
	case *ChronologicalOrder:
		return &ChronologicalOrderAnswer{Answers: clone(t.Sentences)}
	case *OptionSelect:
		return &OptionSelectAnswer{Answers: clone(t.Correct)}
	case *ListWordFill:
		rows := make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = clone(r.Blanks)
		}
		return &ListWordFillAnswer{Answers: rows}
	case *ListChoiceWordFill:
		rows := make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = r.correct()
		}
		return &ListChoiceWordFillAnswer{Answers: rows}
	case *ListSentenceForming:
		rows := make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = clone(r)
		}
		return &ListSentenceFormingAnswer{Answers: rows}
	default:
		return nil
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
