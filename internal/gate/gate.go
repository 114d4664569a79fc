// Package gate implements the prediction-error write gate: given new
// content and its nearest existing neighbors, decide whether the write is
// novel, a reinforcement, an update, a contradiction (supersede), or should
// be linked to related memories. Style (sum-type decision via discriminated
// struct + constructor functions) follows the teacher's database.Graph/
// GraphNode shape (internal/database/models.go) generalized to a decision
// value instead of a graph.
package gate

import (
	"strings"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("gate")

// Thresholds, fixed and descending.
const (
	DuplicateThreshold = 0.95
	HighMatchThreshold = 0.90
	MediumMatchThreshold = 0.70
)

// Action is the PE gate's decision.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionReinforce    Action = "REINFORCE"
	ActionUpdate       Action = "UPDATE"
	ActionSupersede    Action = "SUPERSEDE"
	ActionCreateLinked Action = "CREATE_LINKED"
)

// Candidate is one existing memory considered as a neighbor of new content.
type Candidate struct {
	ID         string
	Content    string
	Similarity float64 // in [0,1]
}

// Decision is the PE gate's sum-type output. Only the fields relevant to
// Action are meaningful; see the ActionX constructors for the canonical
// shape of each variant.
type Decision struct {
	Action        Action
	Similarity    float64
	Reason        string
	CandidateID   string   // set for REINFORCE, UPDATE, SUPERSEDE
	RelatedIDs    []string // set for CREATE_LINKED, up to 3
	Contradiction bool     // set for UPDATE/SUPERSEDE when detected
}

// contradictionPairs is the case-insensitive n-gram pattern set used to
// detect a likely contradiction between new and existing content.
var contradictionPairs = [][2]string{
	{"always", "never"},
	{"must", "must not"},
	{"must", "mustn't"},
	{"enable", "disable"},
	{"use", "avoid"},
	{"should", "should not"},
	{"should", "shouldn't"},
	{"required", "optional"},
	{"allow", "forbid"},
	{"do", "do not"},
	{"do", "don't"},
}

// DetectContradiction reports whether newContent and existingContent
// plausibly assert opposite guidance, based on paired-keyword presence.
// When checkContradictions is false, detection is skipped entirely and this
// always returns false.
func DetectContradiction(existingContent, newContent string, checkContradictions bool) bool {
	if !checkContradictions {
		return false
	}
	a := strings.ToLower(existingContent)
	b := strings.ToLower(newContent)

	for _, pair := range contradictionPairs {
		x, y := pair[0], pair[1]
		if (strings.Contains(a, x) && strings.Contains(b, y)) ||
			(strings.Contains(a, y) && strings.Contains(b, x)) {
			return true
		}
	}
	return false
}

// Options controls Classify's behavior.
type Options struct {
	CheckContradictions bool
}

// Classify decides an action for newContent against candidates, which may
// be nil/empty (treated as CREATE). candidates need not be pre-sorted;
// Classify selects the single highest-similarity candidate per spec(4.10).
func Classify(newContent string, candidates []Candidate, opts Options) Decision {
	if len(candidates) == 0 {
		return Decision{Action: ActionCreate, Reason: "no existing neighbors"}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity > best.Similarity {
			best = c
		}
	}

	switch {
	case best.Similarity >= DuplicateThreshold:
		d := Decision{
			Action:      ActionReinforce,
			Similarity:  best.Similarity,
			CandidateID: best.ID,
			Reason:      "near-duplicate of existing memory",
		}
		log.Info("gate decision", "action", d.Action, "similarity", d.Similarity, "candidate", d.CandidateID)
		return d

	case best.Similarity >= HighMatchThreshold:
		contradiction := DetectContradiction(best.Content, newContent, opts.CheckContradictions)
		action := ActionUpdate
		reason := "close match to existing memory"
		if contradiction {
			action = ActionSupersede
			reason = "contradicts existing memory"
		}
		d := Decision{
			Action:        action,
			Similarity:    best.Similarity,
			CandidateID:   best.ID,
			Contradiction: contradiction,
			Reason:        reason,
		}
		log.Info("gate decision", "action", d.Action, "similarity", d.Similarity, "candidate", d.CandidateID, "contradiction", contradiction)
		return d

	case best.Similarity >= MediumMatchThreshold:
		related := make([]string, 0, 3)
		// Collect up to 3 related ids ordered by descending similarity,
		// including the best candidate itself.
		sorted := append([]Candidate(nil), candidates...)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				if sorted[j].Similarity > sorted[i].Similarity {
					sorted[i], sorted[j] = sorted[j], sorted[i]
				}
			}
		}
		for _, c := range sorted {
			if c.Similarity < MediumMatchThreshold {
				continue
			}
			related = append(related, c.ID)
			if len(related) == 3 {
				break
			}
		}
		d := Decision{
			Action:     ActionCreateLinked,
			Similarity: best.Similarity,
			RelatedIDs: related,
			Reason:     "related but distinct from existing memories",
		}
		log.Info("gate decision", "action", d.Action, "similarity", d.Similarity, "related", len(related))
		return d

	default:
		d := Decision{Action: ActionCreate, Similarity: best.Similarity, Reason: "below medium-match threshold"}
		log.Debug("gate decision", "action", d.Action, "similarity", d.Similarity)
		return d
	}
}

// TruncatePreview returns content truncated to at most 200 characters with
// an ellipsis, for conflict-log previews.
func TruncatePreview(content string) string {
	const maxLen = 200
	r := []rune(content)
	if len(r) <= maxLen {
		return content
	}
	return string(r[:maxLen]) + "..."
}

// WorthLogging reports whether a decision should be appended to the
// conflict log: REINFORCE, UPDATE, SUPERSEDE, CREATE_LINKED always; CREATE
// only when it carries a positive best similarity.
func WorthLogging(d Decision) bool {
	if d.Action != ActionCreate {
		return true
	}
	return d.Similarity > 0
}
