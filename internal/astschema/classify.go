package astschema

import "sort"

const (
	directMappingConfidence = 0.85
	contextRuleConfidence   = 0.9
	patternMatchConfidence  = 0.7
	fallbackConfidence      = 0.5
)

// Classifier classifies raw parser nodes into canonical NodeTypes
// using a language's LanguageMapping, in direct → context → pattern →
// fallback precedence order, and accumulates Stats as it goes.
type Classifier struct {
	registry *Registry
	stats    *Stats
}

// NewClassifier builds a Classifier backed by registry.
func NewClassifier(registry *Registry) *Classifier {
	return &Classifier{registry: registry, stats: newStats()}
}

// Classify maps one raw node to a Classification. Unknown languages
// classify everything as NodeUnknown via ReasonFallback.
func (c *Classifier) Classify(node RawNode) Classification {
	mapping, ok := c.registry.MappingForLanguage(node.Language)
	if !ok {
		result := Classification{NodeType: NodeUnknown, Confidence: fallbackConfidence, Reason: ReasonFallback}
		c.stats.record(node.Language, result)
		return result
	}

	if nt, ok := mapping.DirectMappings[node.Type]; ok {
		result := Classification{NodeType: nt, Confidence: directMappingConfidence, Reason: ReasonDirectMapping}
		c.stats.record(node.Language, result)
		return result
	}

	for _, rule := range mapping.ContextRules {
		if rule.Predicate(node.Type, node.ParentType, node.Name) {
			result := Classification{NodeType: rule.NodeType, Confidence: contextRuleConfidence, Reason: ReasonContextRule}
			c.stats.record(node.Language, result)
			return result
		}
	}

	if nt, matched := matchPattern(mapping.PatternMappings, node.Type); matched {
		result := Classification{NodeType: nt, Confidence: patternMatchConfidence, Reason: ReasonPatternMatch}
		c.stats.record(node.Language, result)
		return result
	}

	fallback := mapping.DefaultFallback
	if fallback == "" {
		fallback = NodeUnknown
	}
	result := Classification{NodeType: fallback, Confidence: fallbackConfidence, Reason: ReasonFallback}
	c.stats.record(node.Language, result)
	return result
}

// matchPattern scans rules in descending priority order and returns
// the NodeType of the highest-priority regex that matches typ. A
// higher priority value wins when multiple patterns match the same
// native type (e.g. a grammar's "custom_method_definition" matching
// both a generic ".*method.*" rule and a more specific one).
func matchPattern(rules []PatternRule, typ string) (NodeType, bool) {
	sorted := make([]PatternRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	for _, rule := range sorted {
		if rule.Regex.MatchString(typ) {
			return rule.NodeType, true
		}
	}
	return "", false
}

// IsContainerType reports whether nodes of this type can hold children
// that matter for hierarchy traversal.
func IsContainerType(t NodeType) bool {
	switch t {
	case NodeFile, NodeModule, NodeNamespace, NodeClass, NodeInterface, NodeEnum,
		NodeFunction, NodeMethod, NodeForLoop, NodeWhileLoop, NodeTryCatch, NodeIfStatement, NodeSwitchStmt:
		return true
	default:
		return false
	}
}

// IsDeclarationType reports whether nodes of this type introduce a
// named symbol.
func IsDeclarationType(t NodeType) bool {
	switch t {
	case NodeClass, NodeFunction, NodeVariable, NodeInterface, NodeParameter,
		NodeProperty, NodeField, NodeEnum, NodeTypeAlias:
		return true
	default:
		return false
	}
}

// GetHierarchyLevel returns the canonical depth for a NodeType, used
// to order breadcrumb-style scope paths.
func GetHierarchyLevel(t NodeType) int {
	switch t {
	case NodeFile:
		return 0
	case NodeModule:
		return 1
	case NodeNamespace:
		return 2
	case NodeClass, NodeInterface, NodeEnum:
		return 3
	case NodeFunction, NodeMethod, NodeConstructor, NodeGetter, NodeSetter, NodeArrowFunction:
		return 4
	case NodeBlockStatement:
		return 5
	case NodeVariable:
		return 6
	case NodeParameter:
		return 7
	default:
		return 8
	}
}
