package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/config"
	"github.com/lazypower/persona/internal/memory"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		want    string
		wantErr bool
	}{
		{"ollama", config.LLMConfig{Provider: "ollama"}, "*llm.Ollama", false},
		{"anthropic", config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key"}, "*llm.Anthropic", false},
		{"anthropic missing key", config.LLMConfig{Provider: "anthropic"}, "", true},
		{"claude-cli", config.LLMConfig{Provider: "claude-cli", Model: "haiku"}, "*llm.ClaudeCLI", false},
		{"unknown", config.LLMConfig{Provider: "gpt"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			var got string
			switch client.(type) {
			case *Ollama:
				got = "*llm.Ollama"
			case *Anthropic:
				got = "*llm.Anthropic"
			case *ClaudeCLI:
				got = "*llm.ClaudeCLI"
			}
			if got != tt.want {
				t.Errorf("client = %T, want %s", client, tt.want)
			}
		})
	}
}

func TestOllamaComplete(t *testing.T) {
	var body struct {
		Model    string          `json:"model"`
		Messages []ollamaMessage `json:"messages"`
		Stream   bool            `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		io.WriteString(w, `{"message":{"role":"assistant","content":"hello there"},"prompt_eval_count":7,"eval_count":3}`)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3.2", 256, 0.8)
	resp, err := o.Complete(context.Background(), Request{System: "be kind", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello there" || resp.TokensUsed != 10 || resp.Provider != "ollama" {
		t.Errorf("resp = %+v", resp)
	}
	if body.Model != "llama3.2" || body.Stream {
		t.Errorf("body = %+v", body)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

func TestOllamaOmitsEmptySystem(t *testing.T) {
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []ollamaMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		n = len(body.Messages)
		io.WriteString(w, `{"message":{"content":"ok"}}`)
	}))
	defer srv.Close()

	if _, err := NewOllama(srv.URL, "m", 0, 0).Complete(context.Background(), Request{Prompt: "x"}); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("messages = %d, want 1", n)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "missing", 0, 0).Complete(context.Background(), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want status 404", err)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"models":[]}`)
	}))
	if !Probe(context.Background(), srv.URL) {
		t.Error("Probe = false for live server")
	}
	srv.Close()
	if Probe(context.Background(), srv.URL) {
		t.Error("Probe = true for closed server")
	}
}

func TestAnthropicComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("api key = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01", "type": "message", "role": "assistant", "model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "I remember the rain."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "claude-haiku-4-5", 300, 0.7, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	resp, err := a.Complete(context.Background(), Request{System: "You are Akira.", Prompt: "Do you remember?"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "I remember the rain." || resp.TokensUsed != 17 {
		t.Errorf("resp = %+v", resp)
	}
	if body["model"] != "claude-haiku-4-5" || body["max_tokens"] != float64(300) {
		t.Errorf("body = %v", body)
	}
	sys, _ := body["system"].([]any)
	if len(sys) != 1 {
		t.Fatalf("system = %v", body["system"])
	}
	if text := sys[0].(map[string]any)["text"]; text != "You are Akira." {
		t.Errorf("system text = %v", text)
	}
}

func TestAnthropicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	a := NewAnthropic("bad", "m", 0, 0, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if _, err := a.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestFilterEnv(t *testing.T) {
	env := []string{
		"HOME=/home/user",
		"CLAUDE_SESSION_ID=abc123",
		"CLAUDE_TRANSCRIPT=/tmp/t.jsonl",
		"PATH=/usr/bin",
	}
	filtered := filterEnv(env)
	if len(filtered) != 2 {
		t.Errorf("expected 2 vars, got %d: %v", len(filtered), filtered)
	}
	for _, e := range filtered {
		if strings.HasPrefix(e, "CLAUDE_") {
			t.Errorf("CLAUDE_ var not filtered: %s", e)
		}
	}
}

func TestClaudeCLIArgs(t *testing.T) {
	c := NewClaudeCLI("haiku")
	got := strings.Join(c.args(Request{System: "You are Akira.", Prompt: "hi"}), " ")
	want := "-p --output-format json --model haiku --max-turns 1 --system-prompt You are Akira."
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	if got := c.args(Request{Prompt: "hi"}); slices.Contains(got, "--system-prompt") {
		t.Errorf("empty system prompt passed: %v", got)
	}
}

func TestParseCLIResult(t *testing.T) {
	resp, err := parseCLIResult([]byte(`{"type":"result","result":" Hello there. ","is_error":false,"usage":{"input_tokens":12,"output_tokens":3}}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Hello there." || resp.TokensUsed != 15 || resp.Provider != "claude-cli" {
		t.Errorf("resp = %+v", resp)
	}

	resp, err = parseCLIResult([]byte("plain text reply\n"))
	if err != nil || resp.Content != "plain text reply" {
		t.Errorf("plain = %+v, %v", resp, err)
	}

	if _, err := parseCLIResult([]byte(`{"result":"rate limited","is_error":true}`)); err == nil {
		t.Error("expected error for is_error result")
	}
	if _, err := parseCLIResult([]byte(`{"result":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), Request{Prompt: "test prompt"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if mock.CallCount() != 1 || mock.Calls[0].Prompt != "test prompt" {
		t.Errorf("calls = %+v", mock.Calls)
	}

	boom := errors.New("boom")
	mock.Respond = func(r Request) (*Response, error) {
		if r.System == "" {
			return nil, boom
		}
		return &Response{Content: "with system"}, nil
	}
	if _, err := mock.Complete(context.Background(), Request{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestMemoryPrompt(t *testing.T) {
	recalled := []Recollection{
		{Content: "I like rain", Strength: 0.9},
		{Content: "the blue door", Strength: 0.5},
		{Content: "a song", Strength: 0.2},
	}
	ctx := memory.ContextSnapshot{
		Active:    []memory.ActiveMemory{{Content: "I like rain"}},
		WeakCount: 2,
		Days:      4,
	}
	got := MemoryPrompt("Do you like weather?", recalled, ctx)
	for _, want := range []string{
		"Someone just said to you: Do you like weather?\n\n",
		"- I clearly remember: I like rain\n",
		"- I vaguely remember: the blue door\n",
		"- I faintly remember: a song\n",
		"about 1 clear thoughts and some things that feel a bit fuzzy. It's been 4 days",
		"just say so honestly.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	empty := MemoryPrompt("hi", nil, memory.ContextSnapshot{})
	if !strings.Contains(empty, "doesn't bring back any specific memories") {
		t.Errorf("empty prompt = %q", empty)
	}
	if strings.Contains(empty, "clear thoughts") {
		t.Error("empty prompt mentions active thoughts")
	}
}

func TestStage(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, StageAwakening}, {3, StageAwakening}, {4, StageLearning}, {8, StageLearning},
		{9, StageEmerging}, {15, StageEmerging}, {16, StageMature}, {500, StageMature},
	}
	for _, tt := range tests {
		if got := Stage(tt.n); got != tt.want {
			t.Errorf("Stage(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
	if DevelopmentModifier(StageMature) != "" {
		t.Error("mature stage has a modifier")
	}
	if !strings.Contains(DevelopmentModifier(StageAwakening), "FIRST TIME") {
		t.Error("awakening modifier missing")
	}
}

func TestTimeContextPrompt(t *testing.T) {
	tc := clock.TimeContext{
		Clock: "11:30 PM", Date: "Sunday, June 01, 2025", Period: "night",
		DaysConscious: 1, HoursConscious: 2, Mode: clock.Awake,
	}
	got := TimeContextPrompt(tc, clock.SleepContext{ShouldBeAsleep: true})
	if !strings.Contains(got, "- Current time: 11:30 PM on Sunday, June 01, 2025\n") {
		t.Errorf("prompt = %q", got)
	}
	if !strings.Contains(got, "normally you'd be asleep") {
		t.Error("missing should-be-asleep line")
	}
	if strings.Contains(got, "just woken up after") {
		t.Error("wake line without a wake")
	}

	woke := TimeContextPrompt(tc, clock.SleepContext{JustWokeUp: true, LastSleepHours: 5, Quality: "poor", SleepDebt: 2})
	for _, want := range []string{"after 5.0 hours of sleep", "Sleep quality was: poor", "2.0 hours of sleep debt"} {
		if !strings.Contains(woke, want) {
			t.Errorf("wake prompt missing %q", want)
		}
	}

	tc.Mode = clock.Sleep
	if strings.Contains(TimeContextPrompt(tc, clock.SleepContext{ShouldBeAsleep: true}), "normally you'd be asleep") {
		t.Error("asleep persona told it should be asleep")
	}
}

func TestLearningPrompt(t *testing.T) {
	got := LearningPrompt("I have a cat", "What's its name?")
	if !strings.Contains(got, "Someone said: I have a cat\nI responded: What's its name?\n") {
		t.Errorf("prompt = %q", got)
	}
	if !strings.Contains(got, "one per line") {
		t.Error("missing format instruction")
	}
}
