package capability

// severityTable fixes the severity of each feature gap. Statefulness and
// transactional semantics cannot be papered over cheaply; streaming,
// multi-modality, and asynchrony can be emulated with visible degradation;
// the rest are conveniences.
var severityTable = map[Feature]Severity{
	FeatureStateful:       SeverityHigh,
	FeatureTransactions:   SeverityHigh,
	FeatureStreaming:      SeverityMedium,
	FeatureMultiModal:     SeverityMedium,
	FeatureAsync:          SeverityMedium,
	FeatureBatching:       SeverityLow,
	FeaturePartialResults: SeverityLow,
	FeatureDiscovery:      SeverityLow,
}

// fallbackTable holds up to two candidate strategies per feature, ordered by
// preference.
var fallbackTable = map[Feature][]FallbackStrategy{
	FeatureStreaming: {
		{
			Name:             "polling-emulation",
			Feature:          FeatureStreaming,
			Type:             FallbackEmulation,
			ConfidenceImpact: 0.1,
			Params:           map[string]any{"pollIntervalMs": 500},
		},
		{
			Name:             "partial-result-accumulation",
			Feature:          FeatureStreaming,
			Type:             FallbackSynthesis,
			ConfidenceImpact: 0.05,
			Params:           map[string]any{"flushOnComplete": true},
		},
	},
	FeatureStateful: {
		{
			Name:             "shadow-state-synthesis",
			Feature:          FeatureStateful,
			Type:             FallbackSynthesis,
			ConfidenceImpact: 0.1,
			Params:           map[string]any{"maxEntries": 100},
		},
		{
			Name:             "context-replay",
			Feature:          FeatureStateful,
			Type:             FallbackEmulation,
			ConfidenceImpact: 0.15,
			Params:           map[string]any{"replayDepth": 10},
		},
	},
	FeatureMultiModal: {
		{
			Name:             "text-only-degradation",
			Feature:          FeatureMultiModal,
			Type:             FallbackDegradation,
			ConfidenceImpact: 0.2,
			Params:           map[string]any{"describeMedia": true},
		},
	},
	FeatureBatching: {
		{
			Name:             "sequential-emulation",
			Feature:          FeatureBatching,
			Type:             FallbackEmulation,
			ConfidenceImpact: 0.05,
		},
	},
	FeatureTransactions: {
		{
			Name:             "compensating-actions",
			Feature:          FeatureTransactions,
			Type:             FallbackDegradation,
			ConfidenceImpact: 0.25,
		},
		{
			Name:             "transaction-rejection",
			Feature:          FeatureTransactions,
			Type:             FallbackRejection,
			ConfidenceImpact: 0.0,
		},
	},
	FeatureAsync: {
		{
			Name:             "blocking-wait-emulation",
			Feature:          FeatureAsync,
			Type:             FallbackEmulation,
			ConfidenceImpact: 0.1,
			Params:           map[string]any{"timeoutMs": 30000},
		},
	},
	FeaturePartialResults: {
		{
			Name:             "buffered-final-result",
			Feature:          FeaturePartialResults,
			Type:             FallbackDegradation,
			ConfidenceImpact: 0.05,
		},
	},
	FeatureDiscovery: {
		{
			Name:             "static-manifest",
			Feature:          FeatureDiscovery,
			Type:             FallbackDegradation,
			ConfidenceImpact: 0.05,
		},
	},
}

// fallbacksFor returns the candidate strategies for a feature, or a
// generated best-effort degradation when the table has none.
func fallbacksFor(feature Feature) []FallbackStrategy {
	if strategies, ok := fallbackTable[feature]; ok {
		out := make([]FallbackStrategy, len(strategies))
		copy(out, strategies)
		return out
	}
	return []FallbackStrategy{{
		Name:             "best-effort-degradation",
		Feature:          feature,
		Type:             FallbackDegradation,
		ConfidenceImpact: 0.2,
	}}
}

// recommendationTable maps gap features to advisory guidance. These are
// metadata for operators, never executed automatically.
var recommendationTable = map[Feature]string{
	FeatureStreaming:      "configure a polling interval and accumulate partial results on the target side",
	FeatureStateful:       "enable shadow-state synthesis so the stateless side can join stateful conversations",
	FeatureMultiModal:     "degrade non-text content to descriptive text or reject media-bearing requests",
	FeatureBatching:       "split batches into sequential requests; expect higher latency",
	FeatureTransactions:   "wrap multi-step operations with compensating actions; atomicity is not guaranteed",
	FeatureAsync:          "emulate asynchrony with a blocking wait and a generous timeout",
	FeaturePartialResults: "buffer until completion and deliver a single final result",
	FeatureDiscovery:      "ship a static capability manifest for the target paradigm",
}
