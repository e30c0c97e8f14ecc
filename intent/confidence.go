package intent

import (
	"github.com/c360/agentbridge/message"
)

// Factor weights. They sum to 1.0; the semantic match dominates because it
// tracks whether the request still asks for the same thing.
const (
	weightSemanticMatch       = 0.4
	weightStructuralAlignment = 0.2
	weightDataPreservation    = 0.3
	weightContextRetention    = 0.1

	// Per-gap confidence penalty and its cap.
	gapPenalty    = 0.05
	gapPenaltyCap = 0.3

	// Recursive field counting depth bound.
	fieldCountDepth = 3
)

// Factors holds the four scoring components, each in [0,1].
type Factors struct {
	SemanticMatch       float64 `json:"semanticMatch"`
	StructuralAlignment float64 `json:"structuralAlignment"`
	DataPreservation    float64 `json:"dataPreservation"`
	ContextRetention    float64 `json:"contextRetention"`
}

// Confidence quantifies how much meaning survived a translation.
// Score is the weighted sum of the factors minus the capped gap penalty,
// clamped to [0,1].
type Confidence struct {
	Score            float64  `json:"score"`
	Factors          Factors  `json:"factors"`
	Warnings         []string `json:"warnings,omitempty"`
	LossyTranslation bool     `json:"lossyTranslation"`
}

// Zero returns the zero-valued confidence attached to failed translations.
func Zero() Confidence {
	return Confidence{}
}

// Score computes translation confidence for a source→target message pair.
// The computation is deterministic and side-effect-free. unresolvedGaps is
// the number of capability gaps that no fallback handled.
func (m *Mapper) Score(source, target *message.ProtocolMessage, unresolvedGaps int) Confidence {
	c := Confidence{
		Factors: Factors{
			SemanticMatch:       semanticMatch(source, target),
			StructuralAlignment: structuralAlignment(source, target),
			DataPreservation:    dataPreservation(source, target),
			ContextRetention:    contextRetention(source, target),
		},
	}

	sum := weightSemanticMatch*c.Factors.SemanticMatch +
		weightStructuralAlignment*c.Factors.StructuralAlignment +
		weightDataPreservation*c.Factors.DataPreservation +
		weightContextRetention*c.Factors.ContextRetention

	penalty := gapPenalty * float64(unresolvedGaps)
	if penalty > gapPenaltyCap {
		penalty = gapPenaltyCap
	}

	c.Score = clamp01(sum - penalty)
	m.applyDirectionWarnings(&c, source.Paradigm, target.Paradigm)
	return c
}

// applyDirectionWarnings injects paradigm-pair specific warnings. Task→tool
// loses streaming and conversation state (marked lossy); tool→task
// synthesizes state the stateless side never had (flagged, not lossy).
func (m *Mapper) applyDirectionWarnings(c *Confidence, source, target message.Paradigm) {
	switch {
	case source == message.ParadigmTaskCentric && target == message.ParadigmToolCentric:
		c.Warnings = append(c.Warnings,
			"streaming progress is not representable in tool-centric responses",
			"stateful task context collapsed to a single synchronous invocation")
		c.LossyTranslation = true
	case source == message.ParadigmToolCentric && target == message.ParadigmTaskCentric:
		c.Warnings = append(c.Warnings,
			"task state synthesized for a stateless tool invocation")
	}
}

// semanticMatch is 0.8 for a successfully extracted intent plus 0.2 times
// the parameter-key overlap ratio between source and target payloads. A
// source with no structured keys scores 1.0: with nothing to carry over,
// no meaning can have been lost.
func semanticMatch(source, target *message.ProtocolMessage) float64 {
	sourceKeys := collectKeys(source.Payload.Structured, fieldCountDepth)
	if len(sourceKeys) == 0 {
		return 1.0
	}
	targetKeys := collectKeys(target.Payload.Structured, fieldCountDepth)

	overlap := 0
	for k := range sourceKeys {
		if _, ok := targetKeys[k]; ok {
			overlap++
		}
	}
	return 0.8 + 0.2*float64(overlap)/float64(len(sourceKeys))
}

// structuralAlignment is the bounded-depth field-count ratio
// min(1, target/source).
func structuralAlignment(source, target *message.ProtocolMessage) float64 {
	sourceFields := countFields(source.Payload.Structured, fieldCountDepth)
	if sourceFields == 0 {
		return 1.0
	}
	targetFields := countFields(target.Payload.Structured, fieldCountDepth)
	ratio := float64(targetFields) / float64(sourceFields)
	if ratio > 1 {
		return 1.0
	}
	return ratio
}

// dataPreservation compares serialized sizes: min(1, target/source).
func dataPreservation(source, target *message.ProtocolMessage) float64 {
	sourceSize := source.Payload.SizeBytes()
	if sourceSize == 0 {
		return 1.0
	}
	ratio := float64(target.Payload.SizeBytes()) / float64(sourceSize)
	if ratio > 1 {
		return 1.0
	}
	return ratio
}

// contextRetention starts at 1.0 and loses 0.3 for a dropped session id and
// 0.2 for a dropped correlation id, floored at 0.
func contextRetention(source, target *message.ProtocolMessage) float64 {
	retention := 1.0
	if source.SessionID != "" && target.SessionID == "" {
		retention -= 0.3
	}
	if source.CorrelationID != "" && target.CorrelationID == "" {
		retention -= 0.2
	}
	if retention < 0 {
		return 0
	}
	return retention
}

// countFields counts structured fields recursively, bounded to maxDepth.
func countFields(m map[string]any, maxDepth int) int {
	if m == nil || maxDepth <= 0 {
		return 0
	}
	count := 0
	for _, v := range m {
		count++
		if nested, ok := v.(map[string]any); ok {
			count += countFields(nested, maxDepth-1)
		}
	}
	return count
}

// collectKeys gathers field names recursively, bounded to maxDepth.
func collectKeys(m map[string]any, maxDepth int) map[string]struct{} {
	keys := make(map[string]struct{})
	gatherKeys(m, maxDepth, keys)
	return keys
}

func gatherKeys(m map[string]any, maxDepth int, into map[string]struct{}) {
	if m == nil || maxDepth <= 0 {
		return
	}
	for k, v := range m {
		into[k] = struct{}{}
		if nested, ok := v.(map[string]any); ok {
			gatherKeys(nested, maxDepth-1, into)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
