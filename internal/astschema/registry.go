package astschema

import (
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// PatternRule matches a parser-native type string against a regex,
// in priority order (higher priority wins when several match).
type PatternRule struct {
	Regex      *regexp.Regexp
	NodeType   NodeType
	Priority   int
	Confidence float64
}

// ContextRule elevates a node to a NodeType based on a predicate over
// the node and its parent's native type, for cases a direct mapping
// can't distinguish (e.g. a method_definition that is actually a
// getter because its parent carries a "get" modifier).
type ContextRule struct {
	Name      string
	Predicate func(node, parentType string, name string) bool
	NodeType  NodeType
}

// LanguageMapping is the full classification ruleset for one language.
type LanguageMapping struct {
	Language        string
	Extensions      []string
	DirectMappings  map[string]NodeType
	PatternMappings []PatternRule
	ContextRules    []ContextRule
	DefaultFallback NodeType
}

// Registry holds the LanguageMapping and tree-sitter grammar for every
// supported language.
type Registry struct {
	mu          sync.RWMutex
	mappings    map[string]*LanguageMapping
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewRegistry builds a registry pre-populated with the languages this
// indexer supports out of the box.
func NewRegistry() *Registry {
	r := &Registry{
		mappings:    make(map[string]*LanguageMapping),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()

	return r
}

func (r *Registry) register(m *LanguageMapping, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mappings[m.Language] = m
	r.tsLanguages[m.Language] = tsLang
	for _, ext := range m.Extensions {
		r.extToLang[ext] = m.Language
	}
}

// MappingForLanguage returns the LanguageMapping registered for name.
func (r *Registry) MappingForLanguage(name string) (*LanguageMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[name]
	return m, ok
}

// LanguageForExtension resolves a file extension (with or without the
// leading dot) to a registered language name.
func (r *Registry) LanguageForExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.extToLang[ext]
	return lang, ok
}

// TreeSitterLanguage returns the compiled grammar registered for a
// language name.
func (r *Registry) TreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions lists every registered file extension.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *Registry) registerGo() {
	m := &LanguageMapping{
		Language:   "go",
		Extensions: []string{".go"},
		DirectMappings: map[string]NodeType{
			"source_file":          NodeFile,
			"function_declaration": NodeFunction,
			"method_declaration":   NodeMethod,
			"type_declaration":     NodeTypeAlias,
			"const_declaration":    NodeVariable,
			"var_declaration":      NodeVariable,
			"parameter_declaration": NodeParameter,
			"import_declaration":   NodeImport,
			"comment":              NodeComment,
			"interpreted_string_literal": NodeStringLiteral,
			"if_statement":         NodeIfStatement,
			"for_statement":        NodeForLoop,
			"expression_switch_statement": NodeSwitchStmt,
			"block":                NodeBlockStatement,
		},
		PatternMappings: []PatternRule{
			{Regex: regexp.MustCompile(`^type_spec$`), NodeType: NodeTypeAlias, Priority: 10, Confidence: 0.7},
			{Regex: regexp.MustCompile(`^struct_type$`), NodeType: NodeClass, Priority: 10, Confidence: 0.7},
			{Regex: regexp.MustCompile(`^interface_type$`), NodeType: NodeInterface, Priority: 10, Confidence: 0.7},
		},
		ContextRules: []ContextRule{
			{
				Name: "receiver method is a method not a function",
				Predicate: func(node, parentType, name string) bool {
					return node == "method_declaration"
				},
				NodeType: NodeMethod,
			},
		},
		DefaultFallback: NodeUnknown,
	}
	r.register(m, golang.GetLanguage())
}

func (r *Registry) registerTypeScript() {
	base := &LanguageMapping{
		Language:   "typescript",
		Extensions: []string{".ts"},
		DirectMappings: map[string]NodeType{
			"program":                NodeFile,
			"function_declaration":   NodeFunction,
			"method_definition":      NodeMethod,
			"class_declaration":      NodeClass,
			"interface_declaration":  NodeInterface,
			"type_alias_declaration": NodeTypeAlias,
			"enum_declaration":       NodeEnum,
			"lexical_declaration":    NodeVariable,
			"variable_declaration":   NodeVariable,
			"arrow_function":         NodeArrowFunction,
			"import_statement":       NodeImport,
			"export_statement":       NodeExport,
			"comment":                NodeComment,
			"string":                 NodeStringLiteral,
			"if_statement":           NodeIfStatement,
			"for_statement":          NodeForLoop,
			"while_statement":        NodeWhileLoop,
			"switch_statement":       NodeSwitchStmt,
			"try_statement":          NodeTryCatch,
			"decorator":              NodeDecorator,
			"required_parameter":     NodeParameter,
			"optional_parameter":     NodeParameter,
			"public_field_definition": NodeField,
			"statement_block":        NodeBlockStatement,
		},
		PatternMappings: []PatternRule{
			{Regex: regexp.MustCompile(`^.*method.*$`), NodeType: NodeMethod, Priority: 5, Confidence: 0.7},
			{Regex: regexp.MustCompile(`^.*function.*$`), NodeType: NodeFunction, Priority: 1, Confidence: 0.7},
		},
		ContextRules: []ContextRule{
			{
				Name: "get accessor",
				Predicate: func(node, parentType, name string) bool {
					return node == "method_definition" && strings.HasPrefix(name, "get ")
				},
				NodeType: NodeGetter,
			},
			{
				Name: "set accessor",
				Predicate: func(node, parentType, name string) bool {
					return node == "method_definition" && strings.HasPrefix(name, "set ")
				},
				NodeType: NodeSetter,
			},
			{
				Name: "constructor method",
				Predicate: func(node, parentType, name string) bool {
					return node == "method_definition" && name == "constructor"
				},
				NodeType: NodeConstructor,
			},
			{
				Name: "identifier child of a class declaration names the class",
				Predicate: func(node, parentType, name string) bool {
					return node == "identifier" && parentType == "class_declaration"
				},
				NodeType: NodeClass,
			},
			{
				Name: "identifier child of a function declaration names the function",
				Predicate: func(node, parentType, name string) bool {
					return node == "identifier" && parentType == "function_declaration"
				},
				NodeType: NodeFunction,
			},
		},
		DefaultFallback: NodeUnknown,
	}
	r.register(base, typescript.GetLanguage())

	tsxMapping := *base
	tsxMapping.Language = "tsx"
	tsxMapping.Extensions = []string{".tsx"}
	r.register(&tsxMapping, tsx.GetLanguage())
}

func (r *Registry) registerJavaScript() {
	base := &LanguageMapping{
		Language:   "javascript",
		Extensions: []string{".js", ".mjs"},
		DirectMappings: map[string]NodeType{
			"program":              NodeFile,
			"function_declaration": NodeFunction,
			"function":             NodeFunction,
			"method_definition":    NodeMethod,
			"class_declaration":    NodeClass,
			"lexical_declaration":  NodeVariable,
			"variable_declaration": NodeVariable,
			"arrow_function":       NodeArrowFunction,
			"import_statement":     NodeImport,
			"export_statement":     NodeExport,
			"comment":              NodeComment,
			"string":               NodeStringLiteral,
			"if_statement":         NodeIfStatement,
			"for_statement":        NodeForLoop,
			"while_statement":      NodeWhileLoop,
			"switch_statement":     NodeSwitchStmt,
			"try_statement":        NodeTryCatch,
			"statement_block":      NodeBlockStatement,
		},
		PatternMappings: []PatternRule{
			{Regex: regexp.MustCompile(`^.*method.*$`), NodeType: NodeMethod, Priority: 5, Confidence: 0.7},
			{Regex: regexp.MustCompile(`^.*function.*$`), NodeType: NodeFunction, Priority: 1, Confidence: 0.7},
		},
		ContextRules: []ContextRule{
			{
				Name: "constructor method",
				Predicate: func(node, parentType, name string) bool {
					return node == "method_definition" && name == "constructor"
				},
				NodeType: NodeConstructor,
			},
		},
		DefaultFallback: NodeUnknown,
	}
	r.register(base, javascript.GetLanguage())

	jsx := *base
	jsx.Language = "jsx"
	jsx.Extensions = []string{".jsx"}
	r.register(&jsx, javascript.GetLanguage())
}

func (r *Registry) registerPython() {
	m := &LanguageMapping{
		Language:   "python",
		Extensions: []string{".py"},
		DirectMappings: map[string]NodeType{
			"module":               NodeFile,
			"function_definition":  NodeFunction,
			"class_definition":     NodeClass,
			"assignment":           NodeVariable,
			"import_statement":     NodeImport,
			"import_from_statement": NodeImport,
			"comment":              NodeComment,
			"string":               NodeStringLiteral,
			"if_statement":         NodeIfStatement,
			"for_statement":        NodeForLoop,
			"while_statement":      NodeWhileLoop,
			"try_statement":        NodeTryCatch,
			"decorator":            NodeDecorator,
			"parameters":           NodeParameter,
			"block":                NodeBlockStatement,
		},
		PatternMappings: []PatternRule{
			{Regex: regexp.MustCompile(`^.*function.*$`), NodeType: NodeFunction, Priority: 1, Confidence: 0.7},
		},
		ContextRules: []ContextRule{
			{
				Name: "method inside a class body",
				Predicate: func(node, parentType, name string) bool {
					return node == "function_definition" && parentType == "block"
				},
				NodeType: NodeMethod,
			},
			{
				Name: "constructor method",
				Predicate: func(node, parentType, name string) bool {
					return node == "function_definition" && name == "__init__"
				},
				NodeType: NodeConstructor,
			},
		},
		DefaultFallback: NodeUnknown,
	}
	r.register(m, python.GetLanguage())
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when callers
// don't need an isolated instance (tests construct their own via
// NewRegistry).
func DefaultRegistry() *Registry { return defaultRegistry }
