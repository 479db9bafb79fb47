package emotion

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// stable returns a monitor whose decay and fluctuation are disabled so
// trigger arithmetic can be checked exactly.
func stable(t *testing.T) *Monitor {
	t.Helper()
	m := New(fixedSource(0))
	m.Restore(State{Meta: Meta{Intensity: 0.5, Stability: 1, Awareness: 0.4}})
	return m
}

func TestNewAtBaseline(t *testing.T) {
	m := New(fixedSource(0.5))
	if m.Levels() != Baseline {
		t.Errorf("Levels = %v, want baseline", m.Levels())
	}
	if m.Meta() != defaultMeta {
		t.Errorf("Meta = %+v, want %+v", m.Meta(), defaultMeta)
	}
	if got := m.Describe(); got != "feeling calm with a mix of happiness" {
		t.Errorf("Describe = %q", got)
	}
}

func TestUpdateTriggers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		response string
		want     map[Emotion]float64
	}{
		{
			name:  "positive",
			input: "This is fantastic",
			want: map[Emotion]float64{
				Happiness: 0.5 + 0.1*0.75, Excitement: 0.4 + 0.08*0.75, Sadness: 0.2 - 0.05*0.75,
			},
		},
		{
			name:     "negative overwrites positive",
			input:    "I love it",
			response: "but it is awful",
			want: map[Emotion]float64{
				Happiness: 0.5 - 0.05*0.75, Sadness: 0.2 + 0.1*0.75,
				Anxiety: 0.3 + 0.03*0.75, Excitement: 0.4 + 0.08*0.75,
			},
		},
		{
			name:  "calm lowers anxiety",
			input: "so peaceful",
			want: map[Emotion]float64{
				Calm: 0.6 + 0.1*0.75, Anxiety: 0.3 - 0.08*0.75, Contentment: 0.5 + 0.06*0.75,
			},
		},
		{
			name:  "nothing",
			input: "ok",
			want:  map[Emotion]float64{Happiness: 0.5, Calm: 0.6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := stable(t)
			m.Update(tt.input, tt.response, nil)
			l := m.Levels()
			for e, want := range tt.want {
				if !near(l[e], want) {
					t.Errorf("%s = %v, want %v", e, l[e], want)
				}
			}
		})
	}
}

func TestUpdateVividRecall(t *testing.T) {
	m := stable(t)
	m.Update("ok", "", []float64{0.9, 0.8})
	if got := m.Meta().Intensity; !near(got, 0.5+0.05*0.75) {
		t.Errorf("Intensity = %v, want %v", got, 0.5+0.05*0.75)
	}
	if got := m.Levels()[Empathy]; !near(got, 0.5+0.04*0.75) {
		t.Errorf("Empathy = %v, want %v", got, 0.5+0.04*0.75)
	}

	m = stable(t)
	m.Update("ok", "", []float64{0.9, 0.4})
	if got := m.Meta().Intensity; got != 0.5 {
		t.Errorf("Intensity = %v after mild recall, want 0.5", got)
	}
}

func TestVividRecallAddsToSocialEmpathy(t *testing.T) {
	m := stable(t)
	m.Update("my friend", "", []float64{1})
	if got := m.Levels()[Empathy]; !near(got, 0.5+0.1*0.75) {
		t.Errorf("Empathy = %v, want %v", got, 0.5+0.1*0.75)
	}
}

func TestDecayTowardBaseline(t *testing.T) {
	m := New(fixedSource(0))
	m.Restore(State{
		Levels: map[string]float64{"happiness": 0.9, "anger": 0.105},
		Meta:   Meta{Intensity: 0.5, Stability: 0.5, Awareness: 0.4},
	})
	m.Update("ok", "", nil)
	l := m.Levels()
	if !near(l[Happiness], 0.89) {
		t.Errorf("Happiness = %v, want 0.89", l[Happiness])
	}
	if !near(l[Anger], 0.1) {
		t.Errorf("Anger = %v, want 0.1 (no overshoot)", l[Anger])
	}
}

func TestFluctuationWhenUnstable(t *testing.T) {
	m := New(fixedSource(0))
	m.Restore(State{Meta: Meta{Intensity: 0.5, Stability: 0.4, Awareness: 0.4}})
	m.Update("ok", "", nil)
	// Every emotion fluctuates by -0.03, then decays back by 0.012.
	l := m.Levels()
	if !near(l[Happiness], 0.5-0.03+0.012) {
		t.Errorf("Happiness = %v, want %v", l[Happiness], 0.5-0.03+0.012)
	}
}

func TestLevelsStayInRange(t *testing.T) {
	m := New(fixedSource(0.99))
	for range 200 {
		m.Update("I hate this, I'm furious and scared", "awful", []float64{1})
	}
	for i, v := range m.Levels() {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v out of range", Emotion(i), v)
		}
	}
	if v := m.Meta().Intensity; v > 1 {
		t.Errorf("Intensity = %v out of range", v)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		levels map[string]float64
		want   string
	}{
		{map[string]float64{"happiness": 0.8}, "feeling quite happy and calm"},
		{map[string]float64{"sadness": 0.9}, "feeling rather sad with some calm"},
		{map[string]float64{"anxiety": 0.65, "calm": 0.1}, "feeling anxious and happiness"},
		{map[string]float64{"excitement": 0.75}, "feeling excited and calm"},
		{map[string]float64{"calm": 0.75}, "feeling calm and happiness"},
		{map[string]float64{"curiosity": 0.65}, "feeling curiosity with a mix of calm"},
	}
	for _, tt := range tests {
		m := stable(t)
		m.Restore(State{Levels: tt.levels})
		if got := m.Describe(); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.levels, got, tt.want)
		}
	}
}

func TestPatterns(t *testing.T) {
	m := stable(t)
	if got := m.Patterns("Akira"); !strings.HasPrefix(got, "Not enough") {
		t.Errorf("Patterns = %q", got)
	}
	m.Update("ok", "", nil)
	m.Update("ok", "", nil)
	if got := m.Patterns("Akira"); got != "Akira's emotional state has been relatively stable recently." {
		t.Errorf("Patterns = %q", got)
	}

	m = stable(t)
	m.Update("happy and calm", "", nil)
	m.Update("happy and calm", "", nil)
	got := m.Patterns("Akira")
	if got != "Akira seems to be becoming happier, becoming more relaxed recently." {
		t.Errorf("Patterns = %q", got)
	}
}

func TestTriggersRecorded(t *testing.T) {
	m := stable(t)
	m.Update(strings.Repeat("wonderful ", 10), "", nil)
	m.Update("ok", "", nil)
	s := m.State()
	if len(s.Triggers) != 1 {
		t.Fatalf("Triggers = %d, want 1", len(s.Triggers))
	}
	tr := s.Triggers[0]
	if n := len([]rune(tr.Input)); n != maxTriggerRunes+3 {
		t.Errorf("trigger input = %d runes, want %d", n, maxTriggerRunes+3)
	}
	if tr.Changes[0].Emotion != Happiness {
		t.Errorf("first change = %v, want happiness", tr.Changes[0].Emotion)
	}
	if got := m.Status().Snapshots; got != 3 {
		t.Errorf("Snapshots = %d, want 3", got)
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	a := New(fixedSource(0.2))
	a.Update("I'm worried about my friend", "I understand", []float64{0.9})

	b, err := json.Marshal(a.State())
	if err != nil {
		t.Fatal(err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		t.Fatal(err)
	}
	c := New(fixedSource(0.2))
	c.Restore(s)
	for i, v := range a.Levels() {
		if !near(c.Levels()[i], v) {
			t.Errorf("%s = %v, want %v", Emotion(i), c.Levels()[i], v)
		}
	}
	if c.Meta() != a.Meta() {
		t.Errorf("Meta = %+v, want %+v", c.Meta(), a.Meta())
	}
	if c.Status().Triggers != 1 {
		t.Errorf("Triggers = %d, want 1", c.Status().Triggers)
	}
}
