// Package catalog supplies the task sequence of a new game.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/victornm/livequiz/internal/task"
)

const defaultTasksPerGame = 5

//go:embed tasks.json
var defaultDeck []byte

type Config struct {
	// Path of a JSON array of task envelopes. The embedded deck is used when empty.
	Path         string
	TasksPerGame int
}

// Catalog is a read-only deck of tasks.
type Catalog struct {
	tasks   []task.Task
	perGame int
}

// Load reads the deck named by c.
func Load(c Config) (*Catalog, error) {
	b := defaultDeck
	if c.Path != "" {
		var err error
		if b, err = os.ReadFile(c.Path); err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", c.Path, err)
		}
	}

	tasks, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	return New(tasks, c.TasksPerGame), nil
}

// Decode parses a JSON array of task envelopes.
func Decode(b []byte) ([]task.Task, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}

	tasks := make([]task.Task, 0, len(raw))
	for i, r := range raw {
		t, err := task.DecodeTask(r)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

// Encode writes tasks as an indented JSON array of task envelopes, the format read
// by Decode.
func Encode(tasks []task.Task) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(tasks))
	for _, t := range tasks {
		b, err := task.EncodeTask(t)
		if err != nil {
			return nil, fmt.Errorf("encode task %s: %w", t.Info().ID, err)
		}
		raw = append(raw, b)
	}

	return json.MarshalIndent(raw, "", "  ")
}

func New(tasks []task.Task, perGame int) *Catalog {
	if perGame <= 0 {
		perGame = defaultTasksPerGame
	}

	return &Catalog{
		tasks:   tasks,
		perGame: perGame,
	}
}

func (c *Catalog) Len() int {
	return len(c.tasks)
}

// Encode returns the whole deck in the format Load reads.
func (c *Catalog) Encode() ([]byte, error) {
	return Encode(c.tasks)
}

// Pick returns up to TasksPerGame distinct tasks in random order.
func (c *Catalog) Pick() []task.Task {
	n := min(c.perGame, len(c.tasks))
	out := make([]task.Task, 0, n)
	for _, i := range rand.Perm(len(c.tasks))[:n] {
		out = append(out, c.tasks[i])
	}

	return out
}
