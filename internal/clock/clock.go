// Package clock tracks the persona's wall-clock awareness: whether it is
// awake, asleep or in ghost mode, how long it slept and how much sleep debt
// it carries.
package clock

import (
	"math"
	"sync"
	"time"
)

// Mode is the persona's operational mode.
type Mode string

const (
	Awake Mode = "awake"
	Sleep Mode = "sleep"
	Ghost Mode = "ghost"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Awake || m == Sleep || m == Ghost
}

// Hours below which a night's sleep counts as poor.
const restfulSleepHours = 7.0

// Awareness is the sleep/wake state machine. It is safe for concurrent use.
type Awareness struct {
	mu sync.Mutex

	mode       Mode
	lastSleep  time.Time
	lastWake   time.Time
	sleepHours float64
	sleepDebt  float64
	sleepStart int
	wakeStart  int
	born       time.Time

	now func() time.Time
}

// New returns an awake persona born now. sleepHour and wakeHour bound the
// natural night (e.g. 22 and 6).
func New(now func() time.Time, sleepHour, wakeHour int) *Awareness {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Awareness{
		mode:       Awake,
		lastWake:   t,
		born:       t,
		sleepStart: sleepHour,
		wakeStart:  wakeHour,
		now:        now,
	}
}

// Mode returns the current operational mode.
func (a *Awareness) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Sleep puts the persona to sleep. It returns false if already asleep.
func (a *Awareness) Sleep() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == Sleep {
		return false
	}
	a.lastSleep = a.now()
	a.mode = Sleep
	return true
}

// Wake brings the persona back to awake. Waking from sleep records the
// sleep duration and adjusts sleep debt; waking from ghost mode only resets
// the wake time. It returns false if already awake.
func (a *Awareness) Wake() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	switch a.mode {
	case Sleep:
		if !a.lastSleep.IsZero() {
			a.sleepHours = now.Sub(a.lastSleep).Hours()
			if a.sleepHours < restfulSleepHours {
				a.sleepDebt += restfulSleepHours - a.sleepHours
			} else {
				a.sleepDebt = math.Max(0, a.sleepDebt-1)
			}
		}
	case Ghost:
	default:
		return false
	}
	a.lastWake = now
	a.mode = Awake
	return true
}

// Ghost switches to ghost mode: unconscious and unaware of conversation.
func (a *Awareness) Ghost() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = Ghost
}

// TimeContext describes the current moment from the persona's perspective.
type TimeContext struct {
	Clock          string  `json:"current_time"`
	Date           string  `json:"current_date"`
	Hour           int     `json:"hour"`
	Period         string  `json:"period"`
	DaysConscious  int     `json:"days_conscious"`
	HoursConscious int     `json:"hours_conscious"`
	Mode           Mode    `json:"operational_mode"`
	SleepDebt      float64 `json:"sleep_debt"`
}

// SleepContext summarizes recent sleep and wake events.
type SleepContext struct {
	HoursSinceWake float64 `json:"hours_since_wake"`
	JustWokeUp     bool    `json:"just_woke_up"`
	HasSlept       bool    `json:"has_slept"`
	LastSleepHours float64 `json:"last_sleep_duration,omitempty"`
	Quality        string  `json:"sleep_quality,omitempty"`
	SleepDebt      float64 `json:"sleep_debt"`
	ShouldBeAsleep bool    `json:"should_be_asleep"`
}

// TimeContext returns the current time context.
func (a *Awareness) TimeContext() TimeContext {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	alive := now.Sub(a.born)
	days := int(alive / (24 * time.Hour))
	hours := int((alive % (24 * time.Hour)) / time.Hour)
	return TimeContext{
		Clock:          now.Format("03:04 PM"),
		Date:           now.Format("Monday, January 02, 2006"),
		Hour:           now.Hour(),
		Period:         Period(now.Hour()),
		DaysConscious:  days,
		HoursConscious: hours,
		Mode:           a.mode,
		SleepDebt:      a.sleepDebt,
	}
}

// SleepContext returns context about the most recent sleep.
func (a *Awareness) SleepContext() SleepContext {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	sc := SleepContext{
		SleepDebt:      a.sleepDebt,
		ShouldBeAsleep: a.naturallyAsleep(now.Hour()),
	}
	if !a.lastWake.IsZero() {
		sc.HoursSinceWake = now.Sub(a.lastWake).Hours()
		sc.JustWokeUp = sc.HoursSinceWake < 0.5
	}
	if !a.lastSleep.IsZero() && a.mode == Awake {
		sc.HasSlept = true
		sc.LastSleepHours = a.sleepHours
		sc.Quality = "poor"
		if a.sleepHours >= restfulSleepHours {
			sc.Quality = "good"
		}
	}
	return sc
}

func (a *Awareness) naturallyAsleep(hour int) bool {
	return hour >= a.sleepStart || hour < a.wakeStart
}

// Period names the part of day for an hour in [0,23].
func Period(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// State is the persisted form of Awareness.
type State struct {
	Mode       Mode      `json:"operational_mode"`
	LastSleep  time.Time `json:"last_sleep_time"`
	LastWake   time.Time `json:"last_wake_time"`
	SleepHours float64   `json:"sleep_duration"`
	SleepDebt  float64   `json:"sleep_debt"`
	Born       time.Time `json:"consciousness_start_time"`
}

// State captures the awareness for persistence.
func (a *Awareness) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Mode:       a.mode,
		LastSleep:  a.lastSleep,
		LastWake:   a.lastWake,
		SleepHours: a.sleepHours,
		SleepDebt:  a.sleepDebt,
		Born:       a.born,
	}
}

// Restore loads a persisted state. An unknown mode restores as awake.
func (a *Awareness) Restore(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = s.Mode
	if !a.mode.Valid() {
		a.mode = Awake
	}
	a.lastSleep = s.LastSleep
	a.lastWake = s.LastWake
	a.sleepHours = s.SleepHours
	a.sleepDebt = s.SleepDebt
	if !s.Born.IsZero() {
		a.born = s.Born
	}
}
