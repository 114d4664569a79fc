// Package fsrs implements the spaced-repetition scheduler used to decay and
// strengthen memory stability/difficulty on access, grounded in the
// power-law FSRS-6 forgetting curve (see other_examples' necyber-goclaw
// pkg/memory/entry.go for the Stability/LastReview field shape this
// generalizes).
package fsrs

import (
	"math"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("fsrs")

// Grade is the recall outcome used to update stability/difficulty.
type Grade int

const (
	GradeAgain Grade = 1
	GradeHard  Grade = 2
	GradeGood  Grade = 3
	GradeEasy  Grade = 4
)

// Tunable constants, bit-exact across implementations.
const (
	Factor            = 19.0 / 81.0
	Decay             = -0.5
	DefaultStability  = 1.0
	DefaultDifficulty = 5.0

	MinStability = 0.1
	MaxStability = 365.0
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// clampStability clamps S to the invariant range [0.1, 365].
func clampStability(s float64) float64 {
	if s < MinStability {
		return MinStability
	}
	if s > MaxStability {
		return MaxStability
	}
	return s
}

// clampDifficulty clamps D to the invariant range [1.0, 10.0].
func clampDifficulty(d float64) float64 {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Retrievability computes R(S, t) = (1 + F*t/S)^D using the power-law decay
// curve. t<=0 returns 1.0; an invalid (non-positive) S is treated as
// DefaultStability. Result is clamped to (0, 1].
func Retrievability(stability, tDays float64) float64 {
	if tDays <= 0 {
		return 1.0
	}
	s := stability
	if s <= 0 {
		s = DefaultStability
	}
	r := math.Pow(1+Factor*tDays/s, Decay)
	if r > 1.0 {
		r = 1.0
	}
	if r <= 0 {
		// Decay is negative so r is mathematically always > 0 for finite
		// inputs; guard only against NaN/Inf from pathological S/t.
		r = math.SmallestNonzeroFloat64
	}
	return r
}

// UpdateStability applies a grade to the current (S, D, R) triple.
// Grade 1 (Again) strictly decreases S, with a drop that grows with D.
// Grades >= 3 strictly increase S, with a larger gain when R is low
// (desirable difficulty: harder recalls reward more on success). Grade 2
// (Hard) is a mild version of the "again" direction, also scaled by D, to
// keep the four grades monotonically ordered in their effect on S.
// Result is clamped to [0.1, 365].
func UpdateStability(stability, difficulty, retrievability float64, grade Grade) float64 {
	s := stability
	if s <= 0 {
		s = DefaultStability
	}
	d := difficulty
	if d <= 0 {
		d = DefaultDifficulty
	}
	r := retrievability
	if r <= 0 || r > 1 {
		r = 0.9
	}

	switch grade {
	case GradeAgain:
		// Harder items (higher D) forget faster on failure.
		penalty := 0.2 + 0.05*d
		return clampStability(s * (1 - math.Min(penalty, 0.9)))
	case GradeHard:
		penalty := 0.05 + 0.01*d
		return clampStability(s * (1 - math.Min(penalty, 0.5)))
	default:
		// Desirable difficulty: the lower R was at recall time, the larger
		// the stability gain on success. A small baseline gain guarantees a
		// strict increase even at R=1 (perfectly predictable recall).
		desirableBonus := math.Max(0, 0.9-r)
		gain := 1.05 + 0.3*desirableBonus
		if grade == GradeEasy {
			gain += 0.15
		}
		return clampStability(s * gain)
	}
}

// UpdateDifficulty applies a grade to D. Grades 1 (hardest outcome) through
// 4 (easiest) produce a monotonically non-increasing effect: Again raises D
// the most, Easy lowers it the most. Result is clamped to [1, 10].
func UpdateDifficulty(difficulty float64, grade Grade) float64 {
	d := difficulty
	if d <= 0 {
		d = DefaultDifficulty
	}
	var delta float64
	switch grade {
	case GradeAgain:
		delta = 1.0
	case GradeHard:
		delta = 0.3
	case GradeGood:
		delta = -0.3
	case GradeEasy:
		delta = -1.0
	}
	return clampDifficulty(d + delta)
}

// OptimalInterval returns the number of days for retrievability to decay
// from 1.0 to rTarget, given stability S. Strictly increases with S and
// strictly increases as rTarget decreases (inverting Retrievability).
func OptimalInterval(stability, rTarget float64) float64 {
	s := stability
	if s <= 0 {
		s = DefaultStability
	}
	r := rTarget
	if r <= 0 {
		r = 0.01
	}
	if r >= 1 {
		return 0
	}
	// Invert R = (1 + F*t/S)^D for t.
	t := s * (math.Pow(r, 1/Decay) - 1) / Factor
	if t < 0 {
		t = 0
	}
	return t
}

// StrengthenOnAccess implements the read-side testing effect: retrieval of a
// memory strengthens it. Computes R at access time from (stability,
// lastReviewDays), applies a GOOD-grade stability update, then boosts the
// result further when R was low (the item was about to be forgotten),
// matching spec(4.9)'s S <- update_stability(...) * (1 + max(0, 0.9-R)*0.5).
// Returns the new stability; callers are responsible for incrementing
// review_count and stamping last_review/last_accessed in the same
// transaction.
func StrengthenOnAccess(stability, difficulty, daysSinceLastReview float64) (newStability float64, retrievabilityAtAccess float64) {
	r := Retrievability(stability, daysSinceLastReview)
	if r <= 0 || r > 1 {
		r = 0.9
	}
	updated := UpdateStability(stability, difficulty, r, GradeGood)
	boost := 1 + math.Max(0, 0.9-r)*0.5
	final := clampStability(updated * boost)
	log.Debug("strengthen on access", "stability_before", stability, "retrievability", r, "stability_after", final)
	return final, r
}
