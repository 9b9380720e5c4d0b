package task

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON form of a task: its kind next to the variant content.
type Envelope struct {
	Kind Kind            `json:"kind"`
	Task json.RawMessage `json:"task"`
}

func newTask(k Kind) (Task, error) {
	switch k {
	case KindWordFill:
		return new(WordFill), nil
	case KindChoiceWordFill:
		return new(ChoiceWordFill), nil
	case KindWordConnect:
		return new(WordConnect), nil
	case KindChronologicalOrder:
		return new(ChronologicalOrder), nil
	case KindOptionSelect:
		return new(OptionSelect), nil
	case KindListWordFill:
		return new(ListWordFill), nil
	case KindListChoiceWordFill:
		return new(ListChoiceWordFill), nil
	case KindListSentenceForming:
		return new(ListSentenceForming), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

func newAnswer(k Kind) (Answer, error) {
	switch k {
	case KindWordFill:
		return new(WordFillAnswer), nil
	case KindChoiceWordFill:
		return new(ChoiceWordFillAnswer), nil
	case KindWordConnect:
		return new(WordConnectAnswer), nil
	case KindChronologicalOrder:
		return new(ChronologicalOrderAnswer), nil
	case KindOptionSelect:
		return new(OptionSelectAnswer), nil
	case KindListWordFill:
		return new(ListWordFillAnswer), nil
	case KindListChoiceWordFill:
		return new(ListChoiceWordFillAnswer), nil
	case KindListSentenceForming:
		return new(ListSentenceFormingAnswer), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// DecodeTask decodes a task envelope.
func DecodeTask(b []byte) (Task, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode task envelope: %w", err)
	}

	t, err := newTask(e.Kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(e.Task, t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
	}

	return t, nil
}

// EncodeTask encodes t as an envelope.
func EncodeTask(t Task) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Kind: t.Kind(), Task: b})
}

// DecodeAnswer decodes an answer body for a task of kind expected. The body may name
// its own kind; a different one fails with ErrInvalidAnswerType.
func DecodeAnswer(expected Kind, b []byte) (Answer, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerType, err)
	}

	k := expected
	if head.Kind != "" {
		k = head.Kind
	}
	if k != expected {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrInvalidAnswerType, k, expected)
	}

	a, err := newAnswer(k)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(b, a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerType, err)
	}

	return a, nil
}
