// Package expr implements the key expression engine: the bidirectional
// mapping between flattened key strings such as
// "tables.table(0).fields.field(1)[@type]" and walks over a node tree.
package expr

// Symbols describes the token vocabulary of the key grammar. Any symbol may
// be empty to disable the corresponding feature: an empty EscapedDelimiter
// disables escaping, empty index markers disable sibling indices, and an
// AttributeStart equal to the property delimiter (with an empty AttributeEnd)
// switches the engine into attribute emulation, where the last segment of a
// key may address either a child node or an attribute.
type Symbols struct {
	PropertyDelimiter string
	EscapedDelimiter  string
	IndexStart        string
	IndexEnd          string
	AttributeStart    string
	AttributeEnd      string
}

// DefaultSymbols is the standard vocabulary: "." delimiter, ".." escape,
// "(N)" indices and "[@name]" attributes.
var DefaultSymbols = Symbols{
	PropertyDelimiter: ".",
	EscapedDelimiter:  "..",
	IndexStart:        "(",
	IndexEnd:          ")",
	AttributeStart:    "[@",
	AttributeEnd:      "]",
}

// AttributeEmulating reports whether attribute markers coincide with the
// property delimiter, so attributes cannot be recognized syntactically.
func (s Symbols) AttributeEmulating() bool {
	return s.AttributeStart != "" && s.AttributeEnd == "" &&
		s.AttributeStart == s.PropertyDelimiter
}
