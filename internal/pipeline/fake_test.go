package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// fakeCompleter replays canned JSON responses. Responses are matched by a
// substring of the system prompt so one fake can serve several stages.
type fakeCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     []string
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{responses: make(map[string]string)}
}

func (f *fakeCompleter) on(systemSubstring, response string) *fakeCompleter {
	f.responses[systemSubstring] = response
	return f
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, _ string, _ float64, v any) error {
	f.mu.Lock()
	f.calls = append(f.calls, system)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for substr, resp := range f.responses {
		if strings.Contains(system, substr) {
			return json.Unmarshal([]byte(resp), v)
		}
	}
	return errors.New("no canned response for prompt")
}

func (f *fakeCompleter) callCount(systemSubstring string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if strings.Contains(call, systemSubstring) {
			n++
		}
	}
	return n
}

func (f *fakeCompleter) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
