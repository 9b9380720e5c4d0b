// Package task holds the closed set of quiz task variants and their grading rules.
//
// Every variant grades only its own answer variant. A score is the fraction of
// correctly answered sub-items in [0, 1]; an empty answer scores 0 and a task without
// sub-items scores 1.
package task

import (
	"errors"
)

type Kind string

const (
	KindWordFill            Kind = "WordFill"
	KindChoiceWordFill      Kind = "ChoiceWordFill"
	KindWordConnect         Kind = "WordConnect"
	KindChronologicalOrder  Kind = "ChronologicalOrder"
	KindOptionSelect        Kind = "OptionSelect"
	KindListWordFill        Kind = "ListWordFill"
	KindListChoiceWordFill  Kind = "ListChoiceWordFill"
	KindListSentenceForming Kind = "ListSentenceForming"
)

// Kinds lists every task kind.
var Kinds = []Kind{
	KindWordFill,
	KindChoiceWordFill,
	KindWordConnect,
	KindChronologicalOrder,
	KindOptionSelect,
	KindListWordFill,
	KindListChoiceWordFill,
	KindListSentenceForming,
}

var (
	// ErrInvalidAnswerType is returned when an answer does not belong to the task's kind
	// or cannot be decoded as one.
	ErrInvalidAnswerType = errors.New("invalid answer type")
	// ErrAnswerLengthMismatch is returned when an answer has a different number of
	// sub-items than the task.
	ErrAnswerLengthMismatch = errors.New("answer length differs from task size")
	ErrUnknownKind          = errors.New("unknown task kind")
)

// Meta is the content shared by all variants.
type Meta struct {
	ID          string   `json:"id"`
	Instruction string   `json:"instruction,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Difficulty  float64  `json:"difficulty"`
}

func (m Meta) Info() Meta { return m }

// Task is one gradeable exercise.
type Task interface {
	Kind() Kind
	Info() Meta
	isTask()
}

// Answer is a participant's submission for one task kind.
type Answer interface {
	Kind() Kind
	isAnswer()
}
