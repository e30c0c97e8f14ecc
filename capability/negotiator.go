package capability

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/c360/agentbridge/message"
)

// pairCompatibility is the fixed paradigm-pair compatibility matrix.
// Self-compatibility is 1.0; cross-paradigm entries reflect how much the
// paradigms' statefulness and synchrony assumptions overlap.
var pairCompatibility = map[message.Paradigm]map[message.Paradigm]float64{
	message.ParadigmToolCentric: {
		message.ParadigmTaskCentric:       0.7,
		message.ParadigmFunctionCalling:   0.9,
		message.ParadigmFrameworkSpecific: 0.5,
	},
	message.ParadigmTaskCentric: {
		message.ParadigmToolCentric:       0.7,
		message.ParadigmFunctionCalling:   0.6,
		message.ParadigmFrameworkSpecific: 0.5,
	},
	message.ParadigmFunctionCalling: {
		message.ParadigmToolCentric:       0.9,
		message.ParadigmTaskCentric:       0.6,
		message.ParadigmFrameworkSpecific: 0.5,
	},
	message.ParadigmFrameworkSpecific: {
		message.ParadigmToolCentric:     0.5,
		message.ParadigmTaskCentric:     0.5,
		message.ParadigmFunctionCalling: 0.5,
	},
}

// baseCompatibility returns the matrix entry for a paradigm pair.
func baseCompatibility(source, target message.Paradigm) float64 {
	if source == target {
		return 1.0
	}
	if row, ok := pairCompatibility[source]; ok {
		if v, ok := row[target]; ok {
			return v
		}
	}
	return 0.5
}

// Negotiator compares protocol manifests. It is stateless apart from a
// cache of negotiation results keyed by paradigm pair.
type Negotiator struct {
	mu     sync.RWMutex
	cache  map[string]*NegotiationResult
	logger *slog.Logger
}

// NewNegotiator creates a negotiator. A nil logger defaults to
// slog.Default().
func NewNegotiator(logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		cache:  make(map[string]*NegotiationResult),
		logger: logger,
	}
}

// Negotiate compares two manifests and produces gaps, a compatibility score,
// warnings, and recommendations. Results are cached per
// (source paradigm+version, target paradigm+version) pair.
func (n *Negotiator) Negotiate(source, target Manifest) *NegotiationResult {
	key := cacheKey(source, target)

	n.mu.RLock()
	if cached, ok := n.cache[key]; ok {
		n.mu.RUnlock()
		return cached
	}
	n.mu.RUnlock()

	result := n.negotiate(source, target)

	n.mu.Lock()
	n.cache[key] = result
	n.mu.Unlock()
	return result
}

func cacheKey(source, target Manifest) string {
	return fmt.Sprintf("%s@%s->%s@%s", source.Paradigm, source.Version, target.Paradigm, target.Version)
}

func (n *Negotiator) negotiate(source, target Manifest) *NegotiationResult {
	gaps := Gaps(source.Features, target.Features)

	compatibility := baseCompatibility(source.Paradigm, target.Paradigm)
	for _, g := range gaps {
		compatibility -= g.Severity.Penalty()
	}
	if constraintsSatisfiable(source.Constraints, target.Constraints) {
		compatibility += 0.1
	}
	if compatibility > 1.0 {
		compatibility = 1.0
	}
	if compatibility < 0 {
		compatibility = 0
	}

	result := &NegotiationResult{
		Success:       compatibility > 0.5,
		Compatibility: compatibility,
		Gaps:          gaps,
	}

	for _, g := range gaps {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("feature %q supported by %s but not by %s (severity %s)",
				g.Feature, source.Paradigm, target.Paradigm, g.Severity))
		if rec, ok := recommendationTable[g.Feature]; ok {
			result.Recommendations = append(result.Recommendations, rec)
		}
	}
	if !result.Success {
		n.logger.Warn("paradigm pair negotiation below compatibility threshold",
			"source", string(source.Paradigm), "target", string(target.Paradigm),
			"compatibility", compatibility, "gaps", len(gaps))
	}
	return result
}

// Gaps returns the capability gaps between two feature sets: every feature
// the source supports and the target does not, in stable order, annotated
// with severity and candidate fallbacks.
func Gaps(source, target Features) []Gap {
	var gaps []Gap
	for _, f := range AllFeatures {
		if source.Has(f) && !target.Has(f) {
			gaps = append(gaps, Gap{
				Feature:   f,
				Severity:  severityTable[f],
				Fallbacks: fallbacksFor(f),
			})
		}
	}
	return gaps
}

// constraintsSatisfiable reports whether both manifests' numeric constraints
// (max execution time, max message size) can be honored simultaneously. Zero
// values mean unconstrained.
func constraintsSatisfiable(a, b Constraints) bool {
	if a.MaxExecutionTime > 0 && b.MaxExecutionTime > 0 && a.MaxExecutionTime > b.MaxExecutionTime {
		return false
	}
	if a.MaxMessageSize > 0 && b.MaxMessageSize > 0 && a.MaxMessageSize > b.MaxMessageSize {
		return false
	}
	return true
}

// CompareCapabilities matches individual named capabilities across two
// manifests. The match score is a weighted sum of name similarity (0.4),
// feature-flag overlap (0.3), and constraint compatibility (0.3); pairs
// scoring above 0.5 are reported compatible.
func (n *Negotiator) CompareCapabilities(source, target Manifest) []CapabilityMatch {
	var matches []CapabilityMatch
	for _, sc := range source.Capabilities {
		best := CapabilityMatch{Source: sc.Name}
		for _, tc := range target.Capabilities {
			score := 0.4*nameSimilarity(sc.Name, tc.Name) +
				0.3*featureOverlap(sc.Features, tc.Features)
			if constraintsSatisfiable(sc.Constraints, tc.Constraints) {
				score += 0.3
			}
			if score > best.Score {
				best.Score = score
				best.Target = tc.Name
			}
		}
		best.Compatible = best.Score > 0.5
		matches = append(matches, best)
	}
	return matches
}

// nameSimilarity scores capability names: 1.0 for an exact match, 0.7 for a
// normalized substring match, 0 otherwise.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 1.0
	}
	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return 0.7
	}
	return 0
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// featureOverlap is the ratio of flags on which both sets agree.
func featureOverlap(a, b Features) float64 {
	matching := 0
	for _, f := range AllFeatures {
		if a.Has(f) == b.Has(f) {
			matching++
		}
	}
	return float64(matching) / float64(len(AllFeatures))
}

// ClearCache drops cached negotiation results. Used when adapters
// re-register with new manifests.
func (n *Negotiator) ClearCache() {
	n.mu.Lock()
	n.cache = make(map[string]*NegotiationResult)
	n.mu.Unlock()
}
