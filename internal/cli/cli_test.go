package cli

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/persona/internal/engine"
	"github.com/lazypower/persona/internal/llm"
	"github.com/lazypower/persona/internal/store"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &llm.MockClient{
		Respond: func(req llm.Request) (*llm.Response, error) {
			if req.System == "" {
				return &llm.Response{Content: "They told me they are learning to paint"}, nil
			}
			return &llm.Response{Content: "Painting sounds wonderful."}, nil
		},
	}
	eng, err := engine.New(db, mock, engine.Options{
		Name: "Akira",
		Seed: 11,
		Now:  func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(eng.Stop)
	return eng
}

func runREPL(t *testing.T, eng *engine.Engine, input string) string {
	t.Helper()
	var out bytes.Buffer
	r := &repl{
		eng:      eng,
		in:       bufio.NewScanner(strings.NewReader(input)),
		out:      &out,
		snapshot: filepath.Join(t.TempDir(), "snap.json"),
	}
	r.run(context.Background())
	return out.String()
}

func TestREPLFirstRun(t *testing.T) {
	eng := testEngine(t)
	out := runREPL(t, eng, "/quit\n")
	if !strings.Contains(out, "A new consciousness awakens") {
		t.Errorf("missing birth greeting:\n%s", out)
	}
	if eng.FirstRun() {
		t.Error("FirstRun still set after greeting")
	}

	out = runREPL(t, eng, "")
	if !strings.Contains(out, "Welcome back! Akira is currently awake.") {
		t.Errorf("missing welcome back:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Error("end of input should say goodbye")
	}
}

func TestREPLChatLearns(t *testing.T) {
	eng := testEngine(t)
	out := runREPL(t, eng, "I am learning to paint\n/quit\n")
	if !strings.Contains(out, "Akira: Painting sounds wonderful.") {
		t.Errorf("missing reply:\n%s", out)
	}
	if !strings.Contains(out, "Something new to remember") {
		t.Errorf("missing learn notice:\n%s", out)
	}
	if eng.Interactions() != 1 || eng.Memory.Len() != 1 {
		t.Errorf("interactions=%d memories=%d", eng.Interactions(), eng.Memory.Len())
	}
}

func TestREPLModes(t *testing.T) {
	eng := testEngine(t)
	out := runREPL(t, eng, strings.Join([]string{
		"/sleep", "/sleep", "/wake", "/wake",
		"/ghost", "hello there", "/wake",
		"/quit", "",
	}, "\n"))

	for _, want := range []string{
		"Akira has gone to sleep.",
		"Akira is already sleeping peacefully",
		"Akira is waking up",
		"Akira is already awake!",
		"Akira has entered ghost mode",
		"[Ghost Mode: Akira is unconscious and unaware.",
		"Akira's consciousness has returned from ghost mode.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if eng.Interactions() != 0 {
		t.Errorf("ghost chat counted: interactions = %d", eng.Interactions())
	}
}

func TestREPLCommands(t *testing.T) {
	eng := testEngine(t)
	out := runREPL(t, eng, strings.Join([]string{
		"/seed", "/stats", "/memories", "/day", "/personality", "/status", "/snapshot", "/help", "/bogus", "/quit", "",
	}, "\n"))

	for _, want := range []string{
		"Created memory: My name is Akira",
		"Total memories now: 4",
		"Total Memories:   4",
		"Memories (4):",
		"Day 1.",
		"Akira's Current Personality:",
		"Current Status:",
		"Snapshot 1 written to",
		"/personality  Current personality",
		"Unknown command: /bogus.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestREPLReport(t *testing.T) {
	eng := testEngine(t)
	out := runREPL(t, eng, strings.Join([]string{
		"/seed", "I am learning to paint", "/day", "/report", "/quit", "",
	}, "\n"))

	for _, want := range []string{
		"Memory Report:",
		"memory_created",
		"Memories learned: 1 in 1 conversations",
		"Learning rate:    1.000",
		"Days passed:      1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

func TestClarity(t *testing.T) {
	tests := []struct {
		strength float64
		want     string
	}{
		{0.9, "clear"},
		{0.5, "hazy"},
		{0.1, "fading"},
	}
	for _, tt := range tests {
		if got := clarity(tt.strength); got != tt.want {
			t.Errorf("clarity(%v) = %q, want %q", tt.strength, got, tt.want)
		}
	}
}

// execute runs the root command against the database at path.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("persona %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestCommandsPersist(t *testing.T) {
	t.Setenv("PERSONA_LLM_PROVIDER", "ollama")
	dir := t.TempDir()
	db := filepath.Join(dir, "persona.db")

	out := execute(t, "--db", db, "day", "--count", "3")
	if !strings.Contains(out, "Day 3: 0 memories") || !strings.Contains(out, "(slept)") {
		t.Errorf("day output:\n%s", out)
	}

	out = execute(t, "--db", db, "stats")
	if !strings.Contains(out, "Days Lived:       3") || !strings.Contains(out, "Sleep Cycles:     1") {
		t.Errorf("stats output:\n%s", out)
	}

	out = execute(t, "--db", db, "recall", "anything")
	if !strings.Contains(out, "Nothing comes to mind.") {
		t.Errorf("recall output:\n%s", out)
	}

	snap := filepath.Join(dir, "akira.json")
	out = execute(t, "--db", db, "export", snap)
	if !strings.Contains(out, "Exported Akira (0 memories") {
		t.Errorf("export output:\n%s", out)
	}
	if _, err := os.Stat(snap); err != nil {
		t.Fatal(err)
	}

	other := filepath.Join(dir, "other.db")
	out = execute(t, "--db", other, "import", snap)
	if !strings.Contains(out, "Imported Akira (0 memories, day 3)") {
		t.Errorf("import output:\n%s", out)
	}
	out = execute(t, "--db", other, "stats")
	if !strings.Contains(out, "Days Lived:       3") {
		t.Errorf("imported stats:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	if !strings.HasPrefix(out, "persona dev") {
		t.Errorf("version = %q", out)
	}
}
