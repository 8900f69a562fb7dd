package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesay/edgesay/internal/edge"
	"github.com/edgesay/edgesay/internal/speech"
)

// recordingEngine captures every engine request it serves.
type recordingEngine struct {
	mu       sync.Mutex
	requests []edge.Request
	failText string // requests with this text fail
}

func (e *recordingEngine) Synthesize(_ context.Context, req edge.Request) ([]byte, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.failText != "" && req.Text == e.failText {
		return nil, errors.New("engine boom")
	}
	return []byte("ID3" + req.Text), nil
}

func newTestRunner(t *testing.T, engine edge.Synthesizer, outputDir string) *Runner {
	t.Helper()
	gen := speech.NewGenerator(engine, nil, nil, nil)
	return NewRunner(gen, Defaults{
		Voice:     "en-US-AriaNeural",
		OutputDir: outputDir,
	}, nil)
}

func collect(events <-chan Event) []Event {
	var out []Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestRunStopsWhenConsumerAbandons(t *testing.T) {
	dir := t.TempDir()
	r := newTestRunner(t, &recordingEngine{}, dir)

	input := `[
		{"text":"one","file_name":"1.mp3"},
		{"text":"two","file_name":"2.mp3"},
		{"text":"three","file_name":"3.mp3"},
		{"text":"four","file_name":"4.mp3"}
	]`
	ctx, cancel := context.WithCancel(context.Background())
	events := r.Run(ctx, input)
	<-events
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return // producer exited and closed the channel
			}
		case <-deadline:
			t.Fatal("producer still running after the consumer cancelled")
		}
	}
}

func TestRunEmitsOneEventPerItemPlusFinal(t *testing.T) {
	dir := t.TempDir()
	r := newTestRunner(t, &recordingEngine{}, dir)

	input := `[
		{"text":"one","file_name":"1.mp3"},
		{"text":"two","file_name":"2.mp3"},
		{"text":"three","file_name":"3.mp3"}
	]`
	events := collect(r.Run(context.Background(), input))

	require.Len(t, events, 4, "3 item events plus 1 closing event")
	for i := 0; i < 3; i++ {
		assert.Equal(t, i+1, events[i].Current, "progress must increase by one per item")
		assert.Equal(t, 3, events[i].Total)
		assert.Empty(t, events[i].Err)
	}
	final := events[3]
	assert.Equal(t, 3, final.Current)
	assert.Equal(t, 3, final.Total)
	assert.Equal(t, []string{"1.mp3", "2.mp3", "3.mp3"}, final.Files)
}

func TestRunMissingFieldIsIsolated(t *testing.T) {
	dir := t.TempDir()
	r := newTestRunner(t, &recordingEngine{}, dir)

	input := `[{"text":"Hi","file_name":"a.mp3"},{"file_name":"b.mp3"}]`
	events := collect(r.Run(context.Background(), input))

	require.Len(t, events, 3, "2 item events plus 1 closing event")

	final := events[2]
	require.Len(t, final.Results, 2)
	assert.Equal(t, "Successfully generated: a.mp3", final.Results[0])
	assert.Equal(t, "Error in item 1: Missing required fields 'text' or 'file_name'", final.Results[1])
	assert.Equal(t, 2, final.Total)
	assert.Equal(t, []string{"a.mp3"}, final.Files)

	_, err := os.Stat(filepath.Join(dir, "a.mp3"))
	assert.NoError(t, err, "a.mp3 must exist")
	_, err = os.Stat(filepath.Join(dir, "b.mp3"))
	assert.True(t, os.IsNotExist(err), "b.mp3 must not exist")
}

func TestRunEngineErrorIsIsolated(t *testing.T) {
	dir := t.TempDir()
	r := newTestRunner(t, &recordingEngine{failText: "bad"}, dir)

	input := `[
		{"text":"bad","file_name":"bad.mp3"},
		{"text":"good","file_name":"good.mp3"}
	]`
	events := collect(r.Run(context.Background(), input))

	require.Len(t, events, 3)
	final := events[2]
	assert.Contains(t, final.Results[0], "Error in item 0:")
	assert.Equal(t, "Successfully generated: good.mp3", final.Results[1])
	assert.Equal(t, []string{"good.mp3"}, final.Files)
}

func TestRunMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	r := newTestRunner(t, &recordingEngine{}, dir)

	for _, input := range []string{`"not a list"`, `{nope`, `{"text":"x"}`} {
		events := collect(r.Run(context.Background(), input))
		require.Len(t, events, 1, "input %q", input)
		assert.NotEmpty(t, events[0].Err)
		assert.Zero(t, events[0].Current)
		assert.Zero(t, events[0].Total)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no files may be written on a parse failure")
}

func TestRunEmptyList(t *testing.T) {
	r := newTestRunner(t, &recordingEngine{}, t.TempDir())
	events := collect(r.Run(context.Background(), `[]`))

	require.Len(t, events, 1, "empty batch still emits the closing event")
	assert.Empty(t, events[0].Err)
	assert.Zero(t, events[0].Current)
	assert.Zero(t, events[0].Total)
}

func TestRunResolvesOverridesAgainstDefaults(t *testing.T) {
	engine := &recordingEngine{}
	gen := speech.NewGenerator(engine, nil, nil, nil)
	r := NewRunner(gen, Defaults{
		Voice:     "en-US-AriaNeural",
		Rate:      5,
		Pitch:     -3,
		OutputDir: t.TempDir(),
	}, nil)

	input := `[
		{"text":"defaults","file_name":"a.mp3"},
		{"text":"custom","file_name":"b.mp3","voice":"en-US-GuyNeural","rate":-20,"pitch":10},
		{"text":"zero","file_name":"c.mp3","rate":0}
	]`
	collect(r.Run(context.Background(), input))

	require.Len(t, engine.requests, 3)
	assert.Equal(t, edge.Request{Text: "defaults", Voice: "en-US-AriaNeural", Rate: 5, Pitch: -3}, engine.requests[0])
	assert.Equal(t, edge.Request{Text: "custom", Voice: "en-US-GuyNeural", Rate: -20, Pitch: 10}, engine.requests[1])
	// An explicit zero must win over the default, not fall back.
	assert.Equal(t, edge.Request{Text: "zero", Voice: "en-US-AriaNeural", Rate: 0, Pitch: -3}, engine.requests[2])
}

func TestRunDeterministic(t *testing.T) {
	input := `[{"text":"Hi","file_name":"a.mp3"},{"file_name":"b.mp3"},{"text":"Yo","file_name":"c.mp3"}]`

	run := func() []Event {
		r := newTestRunner(t, &recordingEngine{}, t.TempDir())
		return collect(r.Run(context.Background(), input))
	}

	assert.Equal(t, run(), run(), "identical input must produce identical event sequences")
}

func TestRunItem(t *testing.T) {
	r := newTestRunner(t, &recordingEngine{}, t.TempDir())
	input := `[{"text":"Hi","file_name":"a.mp3"},{"file_name":"b.mp3"}]`

	path, err := r.RunItem(context.Background(), input, 0)
	require.NoError(t, err)
	defer os.Remove(path)
	assert.True(t, strings.HasSuffix(path, ".mp3"))

	_, err = r.RunItem(context.Background(), input, 1)
	assert.Error(t, err, "item 1 is missing its text")

	_, err = r.RunItem(context.Background(), input, 2)
	assert.Error(t, err, "index out of range")
	_, err = r.RunItem(context.Background(), input, -1)
	assert.Error(t, err)
}

func TestParseTasks(t *testing.T) {
	tasks, err := ParseTasks(`[{"text":"a","file_name":"a.mp3","rate":10}]`)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].Rate)
	assert.Equal(t, 10, *tasks[0].Rate)
	assert.Nil(t, tasks[0].Pitch)

	_, err = ParseTasks(`42`)
	assert.Error(t, err)
}
