package capability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/message"
)

func taskManifest() Manifest {
	return Manifest{
		Paradigm: message.ParadigmTaskCentric,
		Version:  "1.0",
		Features: Features{
			Streaming: true, Stateful: true, MultiModal: true,
			Async: true, PartialResults: true, Discovery: true,
		},
	}
}

func toolManifest() Manifest {
	return Manifest{
		Paradigm: message.ParadigmToolCentric,
		Version:  "1.0",
		Features: Features{Discovery: true, Batching: true},
	}
}

func TestGaps_SourceOnlyFeatures(t *testing.T) {
	gaps := Gaps(taskManifest().Features, toolManifest().Features)

	features := make([]Feature, 0, len(gaps))
	for _, g := range gaps {
		features = append(features, g.Feature)
	}
	// Discovery is supported by both; batching only by target (no gap).
	assert.Equal(t, []Feature{
		FeatureStreaming, FeatureStateful, FeatureMultiModal,
		FeatureAsync, FeaturePartialResults,
	}, features)
}

func TestGaps_SeverityTable(t *testing.T) {
	all := Features{
		Streaming: true, Stateful: true, MultiModal: true, Batching: true,
		Transactions: true, Async: true, PartialResults: true, Discovery: true,
	}
	gaps := Gaps(all, Features{})
	require.Len(t, gaps, 8)

	bySeverity := map[Feature]Severity{}
	for _, g := range gaps {
		bySeverity[g.Feature] = g.Severity
	}
	assert.Equal(t, SeverityHigh, bySeverity[FeatureStateful])
	assert.Equal(t, SeverityHigh, bySeverity[FeatureTransactions])
	assert.Equal(t, SeverityMedium, bySeverity[FeatureStreaming])
	assert.Equal(t, SeverityMedium, bySeverity[FeatureMultiModal])
	assert.Equal(t, SeverityMedium, bySeverity[FeatureAsync])
	assert.Equal(t, SeverityLow, bySeverity[FeatureBatching])
	assert.Equal(t, SeverityLow, bySeverity[FeaturePartialResults])
	assert.Equal(t, SeverityLow, bySeverity[FeatureDiscovery])
}

func TestGaps_FallbackCandidates(t *testing.T) {
	gaps := Gaps(Features{Streaming: true, Stateful: true}, Features{})
	require.Len(t, gaps, 2)

	for _, g := range gaps {
		assert.NotEmpty(t, g.Fallbacks)
		assert.LessOrEqual(t, len(g.Fallbacks), 2)
		for _, fb := range g.Fallbacks {
			assert.Equal(t, g.Feature, fb.Feature)
			assert.NotEmpty(t, fb.Name)
		}
	}
}

func TestNegotiate_StatefulGapPenalty(t *testing.T) {
	// Two manifests differing only in the stateful flag: the gap is high
	// severity and the score drops by exactly the high-severity penalty
	// relative to identical manifests.
	n := NewNegotiator(nil)

	// Unsatisfiable constraints so the +0.1 bonus does not mask the penalty
	// at the 1.0 cap.
	base := Manifest{
		Paradigm: message.ParadigmTaskCentric, Version: "a",
		Features:    Features{Streaming: true},
		Constraints: Constraints{MaxExecutionTime: 10 * time.Second},
	}
	identical := Manifest{
		Paradigm: message.ParadigmTaskCentric, Version: "b",
		Features:    Features{Streaming: true},
		Constraints: Constraints{MaxExecutionTime: time.Second},
	}
	statefulSource := base
	statefulSource.Features.Stateful = true
	statefulSource.Version = "c"

	same := n.Negotiate(base, identical)
	gapped := n.Negotiate(statefulSource, identical)

	require.Len(t, gapped.Gaps, 1)
	assert.Equal(t, FeatureStateful, gapped.Gaps[0].Feature)
	assert.Equal(t, SeverityHigh, gapped.Gaps[0].Severity)
	assert.InDelta(t, same.Compatibility-SeverityHigh.Penalty(), gapped.Compatibility, 1e-9)
}

func TestNegotiate_MatrixAndThreshold(t *testing.T) {
	n := NewNegotiator(nil)

	t.Run("identical manifests fully compatible", func(t *testing.T) {
		m := toolManifest()
		r := n.Negotiate(m, m)
		assert.True(t, r.Success)
		assert.InDelta(t, 1.0, r.Compatibility, 1e-9) // 1.0 + 0.1 bonus capped
		assert.Empty(t, r.Gaps)
	})

	t.Run("task to tool", func(t *testing.T) {
		r := n.Negotiate(taskManifest(), toolManifest())
		// 0.7 base - (3 medium + 1 high + 1 low) + 0.1 bonus = 0.7-0.55+0.1
		assert.InDelta(t, 0.25, r.Compatibility, 1e-9)
		assert.False(t, r.Success)
		assert.NotEmpty(t, r.Warnings)
		assert.NotEmpty(t, r.Recommendations)
	})

	t.Run("tool to task is clean", func(t *testing.T) {
		r := n.Negotiate(toolManifest(), taskManifest())
		// Only batching gaps (low): 0.7 - 0.05 + 0.1
		assert.InDelta(t, 0.75, r.Compatibility, 1e-9)
		assert.True(t, r.Success)
	})
}

func TestNegotiate_ConstraintBonus(t *testing.T) {
	n := NewNegotiator(nil)

	fits := Manifest{
		Paradigm:    message.ParadigmToolCentric,
		Version:     "fits",
		Constraints: Constraints{MaxExecutionTime: 5 * time.Second, MaxMessageSize: 1 << 10},
	}
	roomy := Manifest{
		Paradigm:    message.ParadigmFunctionCalling,
		Version:     "roomy",
		Constraints: Constraints{MaxExecutionTime: 30 * time.Second, MaxMessageSize: 1 << 20},
	}
	tight := Manifest{
		Paradigm:    message.ParadigmFunctionCalling,
		Version:     "tight",
		Constraints: Constraints{MaxExecutionTime: time.Second, MaxMessageSize: 16},
	}

	withBonus := n.Negotiate(fits, roomy)
	withoutBonus := n.Negotiate(fits, tight)
	assert.InDelta(t, 0.1, withBonus.Compatibility-withoutBonus.Compatibility, 1e-9)
}

func TestNegotiate_CachesByPair(t *testing.T) {
	n := NewNegotiator(nil)
	a, b := taskManifest(), toolManifest()

	r1 := n.Negotiate(a, b)
	r2 := n.Negotiate(a, b)
	assert.Same(t, r1, r2, "second negotiation must be served from cache")

	n.ClearCache()
	r3 := n.Negotiate(a, b)
	assert.NotSame(t, r1, r3)
	assert.Equal(t, r1.Compatibility, r3.Compatibility)
}

func TestCompareCapabilities(t *testing.T) {
	n := NewNegotiator(nil)

	source := Manifest{Capabilities: []Capability{
		{Name: "search_files", Features: Features{Discovery: true}},
		{Name: "launch_rocket"},
	}}
	target := Manifest{Capabilities: []Capability{
		{Name: "search-files", Features: Features{Discovery: true}},
		{Name: "read_file"},
	}}

	matches := n.CompareCapabilities(source, target)
	require.Len(t, matches, 2)

	assert.Equal(t, "search_files", matches[0].Source)
	assert.Equal(t, "search-files", matches[0].Target)
	assert.True(t, matches[0].Compatible)
	// Normalized names are equal: 0.4 + 0.3 + 0.3 = 1.0
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)

	// launch_rocket matches nothing by name; flag agreement + constraints
	// alone may pass the bar, but the name contributes zero.
	assert.LessOrEqual(t, matches[1].Score, 0.6+1e-9)
}

func TestFallbacksFor_GeneratedDefault(t *testing.T) {
	fbs := fallbacksFor(Feature("holograms"))
	require.Len(t, fbs, 1)
	assert.Equal(t, "best-effort-degradation", fbs[0].Name)
	assert.Equal(t, FallbackDegradation, fbs[0].Type)
}
