// Package batch runs JSON-described synthesis task lists sequentially,
// isolating per-item failures and reporting progress after every item.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgesay/edgesay/internal/speech"
)

// Task is one JSON-described unit of work. Text and FileName are pointers so
// an absent key can be told apart from an empty value; Voice, Rate and Pitch
// are optional per-item overrides of the batch defaults.
type Task struct {
	Text     *string `json:"text"`
	FileName *string `json:"file_name"`
	Voice    *string `json:"voice,omitempty"`
	Rate     *int    `json:"rate,omitempty"`
	Pitch    *int    `json:"pitch,omitempty"`
}

// Defaults supply the (voice, rate, pitch) triple for tasks that do not
// override them, plus the directory batch output lands in.
type Defaults struct {
	Voice     string
	Rate      int
	Pitch     int
	OutputDir string
}

// Event is one progress notification. Results and Files are cumulative
// snapshots; Current counts attempted items (errors included). A batch-level
// parse failure produces a single Event with Err set and Current=Total=0.
type Event struct {
	Results []string `json:"results"`
	Files   []string `json:"files"`
	Err     string   `json:"error,omitempty"`
	Current int      `json:"current"`
	Total   int      `json:"total"`
}

// Runner executes batches against a speech.Generator.
type Runner struct {
	gen      *speech.Generator
	defaults Defaults
	log      *slog.Logger
}

// NewRunner returns a new Runner instance.
func NewRunner(gen *speech.Generator, defaults Defaults, logger *slog.Logger) *Runner {
	if gen == nil {
		panic("batch: generator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		gen:      gen,
		defaults: defaults,
		log:      logger.With("component", "batch"),
	}
}

// Run parses jsonText as a task list and processes it strictly in input
// order. One Event is sent after every item and one closing Event after the
// last; the channel is closed when the run ends. Items are isolated: a bad
// item is logged in the results and the loop continues.
func (r *Runner) Run(ctx context.Context, jsonText string) <-chan Event {
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		r.run(ctx, jsonText, events)
	}()
	return events
}

func (r *Runner) run(ctx context.Context, jsonText string, events chan<- Event) {
	tasks, err := ParseTasks(jsonText)
	if err != nil {
		r.log.Warn("batch rejected", "error", err)
		emit(ctx, events, Event{Err: err.Error()})
		return
	}

	total := len(tasks)
	r.log.Info("batch started", "tasks", total)

	var results, files []string
	for i, task := range tasks {
		if task.Text == nil || task.FileName == nil {
			results = append(results, fmt.Sprintf("Error in item %d: Missing required fields 'text' or 'file_name'", i))
			if !emit(ctx, events, snapshot(results, files, i+1, total)) {
				return
			}
			continue
		}

		if _, err := r.gen.Generate(ctx, r.request(task)); err != nil {
			results = append(results, fmt.Sprintf("Error in item %d: %v", i, err))
		} else {
			results = append(results, fmt.Sprintf("Successfully generated: %s", *task.FileName))
			files = append(files, *task.FileName)
		}
		if !emit(ctx, events, snapshot(results, files, i+1, total)) {
			return
		}
	}

	r.log.Info("batch finished", "tasks", total, "generated", len(files))
	emit(ctx, events, snapshot(results, files, total, total))
}

// emit delivers ev unless ctx is cancelled first, so an abandoned consumer
// cannot strand the producer goroutine.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// RunItem synthesizes the single task at index into a temp file and returns
// its path.
func (r *Runner) RunItem(ctx context.Context, jsonText string, index int) (string, error) {
	tasks, err := ParseTasks(jsonText)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(tasks) {
		return "", fmt.Errorf("batch: index %d out of range (0-%d)", index, len(tasks)-1)
	}
	task := tasks[index]
	if task.Text == nil || task.FileName == nil {
		return "", errors.New("batch: missing required fields 'text' or 'file_name'")
	}

	req := r.request(task)
	req.OutputDir = ""
	req.FileName = ""
	return r.gen.Generate(ctx, req)
}

// request resolves per-item overrides against the batch defaults.
func (r *Runner) request(task Task) speech.Request {
	req := speech.Request{
		Voice:     r.defaults.Voice,
		Rate:      r.defaults.Rate,
		Pitch:     r.defaults.Pitch,
		OutputDir: r.defaults.OutputDir,
	}
	if task.Text != nil {
		req.Text = *task.Text
	}
	if task.FileName != nil {
		req.FileName = *task.FileName
	}
	if task.Voice != nil {
		req.Voice = *task.Voice
	}
	if task.Rate != nil {
		req.Rate = *task.Rate
	}
	if task.Pitch != nil {
		req.Pitch = *task.Pitch
	}
	return req
}

// ParseTasks deserializes a JSON task list. A top-level value that is not a
// list fails the whole batch, as does malformed JSON.
func ParseTasks(jsonText string) ([]Task, error) {
	var probe any
	if err := json.Unmarshal([]byte(jsonText), &probe); err != nil {
		return nil, fmt.Errorf("batch: JSON parsing error: %w", err)
	}
	if _, ok := probe.([]any); !ok {
		return nil, errors.New("batch: JSON input must be a list")
	}

	var tasks []Task
	if err := json.Unmarshal([]byte(jsonText), &tasks); err != nil {
		return nil, fmt.Errorf("batch: JSON parsing error: %w", err)
	}
	return tasks, nil
}

// snapshot copies the cumulative state so emitted events stay immutable.
func snapshot(results, files []string, current, total int) Event {
	e := Event{
		Results: make([]string, len(results)),
		Files:   make([]string, len(files)),
		Current: current,
		Total:   total,
	}
	copy(e.Results, results)
	copy(e.Files, files)
	return e
}
