package memory

import (
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Source supplies the randomness behind strength noise, decay fluctuation,
// mind-wandering and recall. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Strength bounds applied by TotalStrength.
const (
	MinStrength = 0.05
	MaxStrength = 1.0
)

// Record is a single remembered unit with multi-component strength state.
//
// EmotionWeight, Importance, Context, PersistenceFactor, VolatilityFactor,
// InterferenceResistance and OriginalContent are fixed at creation.
type Record struct {
	ID              string  `json:"id"`
	Content         string  `json:"content"`
	OriginalContent string  `json:"original_content"`
	EmotionWeight   float64 `json:"emotion_weight"`
	Importance      float64 `json:"importance"`
	Context         string  `json:"context"`

	PersistenceFactor      float64 `json:"persistence_factor"`
	VolatilityFactor       float64 `json:"volatility_factor"`
	BaseStrength           float64 `json:"base_strength"`
	RetrievalStrength      float64 `json:"retrieval_strength"`
	ConsolidationStrength  float64 `json:"consolidation_strength"`
	InterferenceResistance float64 `json:"interference_resistance"`

	AccessCount     int   `json:"access_count"`
	LastAccessedDay int   `json:"last_accessed_day"`
	AccessHistory   []int `json:"access_history"`

	Fingerprint     string    `json:"fingerprint"`
	CreatedAt       time.Time `json:"created_at"`
	StrengthHistory []float64 `json:"strength_history"`
}

// newRecord builds a record with its randomized per-memory factors drawn
// from src. Draw order: persistence, volatility, base noise.
func newRecord(content string, emotion, importance float64, context string, src Source, now time.Time) *Record {
	r := &Record{
		Content:                content,
		OriginalContent:        content,
		EmotionWeight:          emotion,
		Importance:             importance,
		Context:                context,
		PersistenceFactor:      0.5 + src.Float64()*0.5,
		VolatilityFactor:       src.Float64() * 0.3,
		RetrievalStrength:      0.5,
		ConsolidationStrength:  0.5,
		InterferenceResistance: emotion*0.8 + importance*0.2,
		AccessHistory:          []int{},
		Fingerprint:            Fingerprint(content),
		CreatedAt:              now,
	}
	r.BaseStrength = 0.3*emotion + 0.4*importance + 0.3*src.Float64()
	r.StrengthHistory = []float64{r.TotalStrength(src)}
	return r
}

// Fingerprint returns the 8 hex character identity tag for content.
func Fingerprint(content string) string {
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64String(content)))
}

// TotalStrength computes the composite strength. The fluctuation term is
// re-sampled on every call, so consecutive calls rarely agree.
func (r *Record) TotalStrength(src Source) float64 {
	base := r.BaseStrength * r.PersistenceFactor
	retrieval := math.Min(r.RetrievalStrength*float64(r.AccessCount)*0.1, 0.4)
	consolidation := r.ConsolidationStrength * 0.3
	fluctuation := math.Sin(src.Float64()*2*math.Pi) * r.VolatilityFactor * 0.2
	return clamp(base+retrieval+consolidation+fluctuation, MinStrength, MaxStrength)
}

// Access reinforces the record as retrieved on day. Retrieval strength is
// capped at 0.95 and base strength at 0.9, but a value already above its cap
// is left alone rather than lowered.
func (r *Record) Access(day int) {
	r.AccessCount++
	r.LastAccessedDay = day
	r.AccessHistory = append(r.AccessHistory, day)
	r.RetrievalStrength = math.Max(r.RetrievalStrength, math.Min(0.95, r.RetrievalStrength+0.05))
	r.BaseStrength = math.Max(r.BaseStrength, math.Min(0.9, r.BaseStrength+0.02))
}

// Decay applies one day of time, interference, disuse and random decay.
func (r *Record) Decay(day int, all []*Record, src Source) {
	r.BaseStrength *= 1 - 0.02/((1+r.Importance)*(1+r.EmotionWeight))

	r.BaseStrength *= 1 - 0.1*r.Interference(all, src)

	if idle := day - r.LastAccessedDay; idle > 3 {
		r.RetrievalStrength *= 1 - 0.01*float64(idle)
	}

	if src.Float64() < 0.3 {
		r.BaseStrength += (src.Float64() - 0.5) * 0.2 * r.VolatilityFactor
	}

	if r.EmotionWeight > 0.8 {
		r.BaseStrength = math.Max(r.BaseStrength, 0.3)
	}

	r.StrengthHistory = append(r.StrengthHistory, r.TotalStrength(src))
}

// Interference sums suppression from lexically similar, stronger records
// with a different fingerprint. The result is capped at 0.5.
func (r *Record) Interference(all []*Record, src Source) float64 {
	mine := wordSet(r.OriginalContent)
	total := 0.0
	for _, other := range all {
		if other == r || other.Fingerprint == r.Fingerprint {
			continue
		}
		sim := jaccard(mine, wordSet(other.OriginalContent))
		if sim <= 0.3 {
			continue
		}
		if other.TotalStrength(src)-r.TotalStrength(src) > 0 {
			total += sim * 0.2 * (1 - r.InterferenceResistance)
		}
	}
	return math.Min(total, 0.5)
}

// Consolidate runs one sleep-cycle consolidation step.
func (r *Record) Consolidate(src Source) {
	if r.AccessCount > 0 || r.Importance > 0.6 {
		gain := 0.05 * (r.Importance + r.EmotionWeight) / 2
		r.ConsolidationStrength = math.Min(0.95, r.ConsolidationStrength+gain)
	} else {
		r.ConsolidationStrength *= 0.98
	}
	r.StrengthHistory = append(r.StrengthHistory, r.TotalStrength(src))
}

// Clone returns a deep copy.
func (r *Record) Clone() Record {
	c := *r
	c.AccessHistory = append([]int{}, r.AccessHistory...)
	c.StrengthHistory = append([]float64{}, r.StrengthHistory...)
	return c
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
