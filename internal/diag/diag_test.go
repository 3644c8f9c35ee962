package diag

import (
	"bytes"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLogger(t *testing.T) {
	var buf bytes.Buffer
	sink := FromLogger(zerolog.New(&buf))

	sink.Record(Event{
		Level:     LevelWarn,
		Component: "elf",
		Message:   "section table truncated",
		Fields:    map[string]any{"shnum": 12},
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"component":"elf"`)
	assert.Contains(t, out, `"shnum":12`)
	assert.Contains(t, out, "section table truncated")
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	OrNop(nil).Record(Event{Message: "dropped"})

	rec := &Recorder{}
	assert.Same(t, rec, OrNop(rec))
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(Event{Message: "tick"})
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Events(), 16)
}
