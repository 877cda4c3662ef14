package astschema

import "sync"

// Stats accumulates classification counters across a Classifier's
// lifetime: how many nodes were seen per language and per NodeType,
// a running average confidence, and how often the fallback path fired.
type Stats struct {
	mu               sync.Mutex
	total            int
	fallbackCount    int
	confidenceSum    float64
	perLanguage      map[string]int
	perNodeType      map[NodeType]int
}

func newStats() *Stats {
	return &Stats{
		perLanguage: make(map[string]int),
		perNodeType: make(map[NodeType]int),
	}
}

func (s *Stats) record(language string, c Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.confidenceSum += c.Confidence
	s.perLanguage[language]++
	s.perNodeType[c.NodeType]++
	if c.Reason == ReasonFallback {
		s.fallbackCount++
	}
}

// StatsSnapshot is a point-in-time, read-only copy of Stats.
type StatsSnapshot struct {
	Total             int
	FallbackCount     int
	AverageConfidence float64
	PerLanguage       map[string]int
	PerNodeType       map[NodeType]int
}

// Stats returns a snapshot of the classifier's accumulated counters.
func (c *Classifier) Stats() StatsSnapshot {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()

	avg := 0.0
	if c.stats.total > 0 {
		avg = c.stats.confidenceSum / float64(c.stats.total)
	}

	perLanguage := make(map[string]int, len(c.stats.perLanguage))
	for k, v := range c.stats.perLanguage {
		perLanguage[k] = v
	}
	perNodeType := make(map[NodeType]int, len(c.stats.perNodeType))
	for k, v := range c.stats.perNodeType {
		perNodeType[k] = v
	}

	return StatsSnapshot{
		Total:             c.stats.total,
		FallbackCount:     c.stats.fallbackCount,
		AverageConfidence: avg,
		PerLanguage:       perLanguage,
		PerNodeType:       perNodeType,
	}
}

// ResetStats zeroes every accumulated counter.
func (c *Classifier) ResetStats() {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()

	c.stats.total = 0
	c.stats.fallbackCount = 0
	c.stats.confidenceSum = 0
	c.stats.perLanguage = make(map[string]int)
	c.stats.perNodeType = make(map[NodeType]int)
}

// AccuracyResult is the outcome of ValidateAccuracy.
type AccuracyResult struct {
	Total      int
	Correct    int
	Percentage float64
}

// LabeledNode pairs a RawNode with the NodeType a human reviewer
// expects the classifier to produce, for accuracy testing.
type LabeledNode struct {
	Node     RawNode
	Expected NodeType
}

// MinClassificationAccuracy is the lowest acceptable
// AccuracyResult.Percentage.
const MinClassificationAccuracy = 0.95

// ValidateAccuracy runs the classifier over testSet without mutating
// its accumulated Stats and reports how many classifications matched
// the expected NodeType.
func (c *Classifier) ValidateAccuracy(testSet []LabeledNode) AccuracyResult {
	scratch := NewClassifier(c.registry)

	correct := 0
	for _, tc := range testSet {
		got := scratch.Classify(tc.Node)
		if got.NodeType == tc.Expected {
			correct++
		}
	}

	total := len(testSet)
	pct := 0.0
	if total > 0 {
		pct = float64(correct) / float64(total)
	}

	return AccuracyResult{Total: total, Correct: correct, Percentage: pct}
}
