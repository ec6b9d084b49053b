// Package blind maps conditions to anonymous A/B slots so judges never know
// which policy produced which review.
package blind

import (
	"hash/fnv"
	"math/rand"

	"github.com/ppetrov/pairbench/internal/model"
)

// Assignment records which condition occupies each anonymous slot for one pair
type Assignment struct {
	SlotA model.Condition
	SlotB model.Condition
}

// Assigner derives slot assignments from a fixed seed. For a given seed the
// mapping is a pure function of the pair key, so independent judging passes,
// including ones in separate processes, see identical blinding. Cross-judge
// agreement statistics rely on this.
type Assigner struct {
	seed int64
}

// NewAssigner creates an assigner for the given global seed
func NewAssigner(seed int64) *Assigner {
	return &Assigner{seed: seed}
}

// Assign returns the slot assignment for a pair key
func (a *Assigner) Assign(pairKey string) Assignment {
	h := fnv.New64a()
	h.Write([]byte(pairKey))

	// Local generator per call: no shared state, no ordering dependence
	// between pairs.
	rng := rand.New(rand.NewSource(a.seed ^ int64(h.Sum64())))
	if rng.Intn(2) == 0 {
		return Assignment{SlotA: model.ConditionTreatment, SlotB: model.ConditionControl}
	}
	return Assignment{SlotA: model.ConditionControl, SlotB: model.ConditionTreatment}
}

// Resolve maps a slot verdict back to the winning condition. The empty
// condition means tie.
func (asn Assignment) Resolve(verdict model.Verdict) model.Condition {
	switch verdict {
	case model.VerdictA:
		return asn.SlotA
	case model.VerdictB:
		return asn.SlotB
	default:
		return ""
	}
}
