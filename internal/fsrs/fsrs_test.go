package fsrs

import (
	"math"
	"testing"
)

func TestRetrievabilityAtZero(t *testing.T) {
	if r := Retrievability(5.0, 0); r != 1.0 {
		t.Fatalf("expected R(S,0)=1.0, got %v", r)
	}
	if r := Retrievability(5.0, -3); r != 1.0 {
		t.Fatalf("expected R(S,t<=0)=1.0, got %v", r)
	}
}

func TestRetrievabilityMonotonicInTime(t *testing.T) {
	prev := Retrievability(10.0, 0.001)
	for _, days := range []float64{1, 5, 10, 30, 100} {
		r := Retrievability(10.0, days)
		if r > prev {
			t.Fatalf("retrievability should be non-increasing in t, got %v after %v", r, prev)
		}
		prev = r
	}
}

func TestRetrievabilityHigherStabilityWins(t *testing.T) {
	low := Retrievability(1.0, 10)
	high := Retrievability(50.0, 10)
	if !(high > low) {
		t.Fatalf("expected higher stability to retain more: high=%v low=%v", high, low)
	}
}

func TestUpdateStabilityClampRange(t *testing.T) {
	for _, grade := range []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy} {
		s := UpdateStability(1.0, 5.0, 0.5, grade)
		if s < MinStability || s > MaxStability {
			t.Fatalf("grade %v produced out-of-range stability %v", grade, s)
		}
	}
}

func TestUpdateStabilityAgainDecreases(t *testing.T) {
	s := UpdateStability(10.0, 5.0, 0.9, GradeAgain)
	if !(s < 10.0) {
		t.Fatalf("expected Again to strictly decrease stability, got %v", s)
	}
}

func TestUpdateStabilityGoodIncreases(t *testing.T) {
	s := UpdateStability(10.0, 5.0, 0.95, GradeGood)
	if !(s > 10.0) {
		t.Fatalf("expected Good to strictly increase stability, got %v", s)
	}
}

func TestUpdateStabilityDesirableDifficulty(t *testing.T) {
	lowR := UpdateStability(10.0, 5.0, 0.3, GradeGood)
	highR := UpdateStability(10.0, 5.0, 0.95, GradeGood)
	if !(lowR-10.0 > highR-10.0) {
		t.Fatalf("expected larger gain at lower R: lowR gain=%v highR gain=%v", lowR-10.0, highR-10.0)
	}
}

func TestUpdateDifficultyMonotonic(t *testing.T) {
	again := UpdateDifficulty(5.0, GradeAgain)
	hard := UpdateDifficulty(5.0, GradeHard)
	good := UpdateDifficulty(5.0, GradeGood)
	easy := UpdateDifficulty(5.0, GradeEasy)
	if !(again >= hard && hard >= good && good >= easy) {
		t.Fatalf("expected monotonically non-increasing D across grades 1..4: %v %v %v %v", again, hard, good, easy)
	}
}

func TestUpdateDifficultyClamp(t *testing.T) {
	d := UpdateDifficulty(1.0, GradeEasy)
	if d < MinDifficulty {
		t.Fatalf("difficulty should clamp at %v, got %v", MinDifficulty, d)
	}
	d = UpdateDifficulty(10.0, GradeAgain)
	if d > MaxDifficulty {
		t.Fatalf("difficulty should clamp at %v, got %v", MaxDifficulty, d)
	}
}

func TestOptimalIntervalIncreasesWithStability(t *testing.T) {
	shortS := OptimalInterval(1.0, 0.9)
	longS := OptimalInterval(50.0, 0.9)
	if !(longS > shortS) {
		t.Fatalf("expected optimal interval to increase with stability: short=%v long=%v", shortS, longS)
	}
}

func TestOptimalIntervalIncreasesAsTargetDecreases(t *testing.T) {
	highTarget := OptimalInterval(10.0, 0.95)
	lowTarget := OptimalInterval(10.0, 0.70)
	if !(lowTarget > highTarget) {
		t.Fatalf("expected interval to increase as target decreases: high=%v low=%v", highTarget, lowTarget)
	}
}

func TestStrengthenOnAccessStrictlyIncreases(t *testing.T) {
	newS, r := StrengthenOnAccess(1.0, 5.0, 3)
	if !(newS > 1.0) {
		t.Fatalf("expected strengthen_on_access to strictly increase stability, got %v (R=%v)", newS, r)
	}
}

func TestStrengthenOnAccessNearPerfectRecallStillIncreases(t *testing.T) {
	// access immediately after review (t~0) => R~1.0, boost term vanishes,
	// but the update itself must still strictly increase S.
	newS, _ := StrengthenOnAccess(5.0, 5.0, 0.001)
	if !(newS > 5.0) {
		t.Fatalf("expected strict increase even at near-perfect recall, got %v", newS)
	}
}

func TestConstantsExact(t *testing.T) {
	if math.Abs(Factor-19.0/81.0) > 1e-12 {
		t.Fatalf("FSRS_FACTOR mismatch: %v", Factor)
	}
	if Decay != -0.5 {
		t.Fatalf("FSRS_DECAY mismatch: %v", Decay)
	}
	if DefaultStability != 1.0 || DefaultDifficulty != 5.0 {
		t.Fatalf("default stability/difficulty mismatch")
	}
}
