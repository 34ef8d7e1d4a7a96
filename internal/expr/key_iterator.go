package expr

import (
	"strconv"
	"strings"
)

// KeyIterator is a cursor over the segments of a key. Each call to NextKey
// advances to the next segment and exposes its name together with the
// optional sibling index and attribute flag.
//
// Iterators are plain values; Clone gives an independent cursor at the same
// position, which the engine uses to fan out over multiple matching
// children.
type KeyIterator struct {
	sym Symbols
	key string
	pos int

	current   string
	index     int
	hasIndex  bool
	attribute bool
}

// HasNext reports whether more segments remain.
func (it *KeyIterator) HasNext() bool {
	return it.pos < len(it.key)
}

// Clone returns an independent copy of the iterator at the same position.
func (it *KeyIterator) Clone() *KeyIterator {
	cp := *it
	return &cp
}

// NextKey advances to the next segment and returns its name. When the
// iterator is exhausted it returns the empty string.
func (it *KeyIterator) NextKey() string {
	if !it.HasNext() {
		return ""
	}
	it.hasIndex = false
	it.index = -1
	it.attribute = false

	// Skip empty segments: unescaped delimiters collapse.
	for it.pos < len(it.key) && hasLeadingDelimiter(it.sym, it.key[it.pos:]) {
		it.pos += len(it.sym.PropertyDelimiter)
	}
	if it.pos >= len(it.key) {
		// The key ends in a dangling delimiter that survived trimming
		// (it was part of an escape sequence). Treat the final
		// delimiter character as a literal segment.
		it.current = it.key[len(it.key)-1:]
		it.pos = len(it.key)
		return it.current
	}

	token := it.nextToken()
	if it.isAttributeToken(token) {
		it.attribute = true
		it.current = it.stripAttributeMarkers(token)
	} else {
		it.current = it.checkIndex(token)
	}
	return it.current
}

// CurrentKey returns the name of the current segment.
func (it *KeyIterator) CurrentKey() string {
	return it.current
}

// HasIndex reports whether the current segment carries an explicit sibling
// index.
func (it *KeyIterator) HasIndex() bool {
	return it.hasIndex
}

// Index returns the sibling index of the current segment, or -1 if none was
// given.
func (it *KeyIterator) Index() int {
	return it.index
}

// IsAttribute reports whether the current segment addresses an attribute.
// In attribute emulation the last segment of a key always counts as a
// possible attribute.
func (it *KeyIterator) IsAttribute() bool {
	return it.attribute || it.sym.AttributeEmulating() && !it.HasNext()
}

// IsPropertyKey reports whether the current segment may address a child
// node. In attribute emulation every segment does.
func (it *KeyIterator) IsPropertyKey() bool {
	return !it.attribute
}

// isParsedAttribute returns the raw attribute flag without the emulation
// heuristic, for segment comparison.
func (it *KeyIterator) isParsedAttribute() bool {
	return it.attribute
}

// nextToken scans the raw text of the next segment, resolving escaped
// delimiters and stopping at an unescaped delimiter or an attribute marker.
func (it *KeyIterator) nextToken() string {
	end := len(it.key)
	if it.sym.AttributeStart != "" && !it.sym.AttributeEmulating() {
		if i := strings.Index(it.key[it.pos:], it.sym.AttributeStart); i > 0 {
			end = it.pos + i
		}
	}

	var token strings.Builder
	i := it.pos
	for i < end {
		if it.isDelimiterAt(i) {
			if it.isEscapedAt(i) {
				token.WriteString(it.sym.PropertyDelimiter)
				i += len(it.sym.EscapedDelimiter)
				continue
			}
			break
		}
		token.WriteByte(it.key[i])
		i++
	}
	it.pos = i
	return token.String()
}

// checkIndex splits a trailing index marker off the token. Malformed or
// unbalanced markers are kept as literal text.
func (it *KeyIterator) checkIndex(token string) string {
	if it.sym.IndexStart == "" || it.sym.IndexEnd == "" {
		return token
	}
	start := strings.LastIndex(token, it.sym.IndexStart)
	if start <= 0 || !strings.HasSuffix(token, it.sym.IndexEnd) {
		return token
	}
	inner := token[start+len(it.sym.IndexStart) : len(token)-len(it.sym.IndexEnd)]
	idx, err := strconv.Atoi(inner)
	if err != nil {
		return token
	}
	it.hasIndex = true
	it.index = idx
	return token[:start]
}

func (it *KeyIterator) isAttributeToken(token string) bool {
	if token == "" || it.sym.AttributeStart == "" || it.sym.AttributeEmulating() {
		return false
	}
	return strings.HasPrefix(token, it.sym.AttributeStart) &&
		(it.sym.AttributeEnd == "" || strings.HasSuffix(token, it.sym.AttributeEnd))
}

func (it *KeyIterator) stripAttributeMarkers(token string) string {
	token = strings.TrimPrefix(token, it.sym.AttributeStart)
	if it.sym.AttributeEnd != "" {
		token = strings.TrimSuffix(token, it.sym.AttributeEnd)
	}
	return token
}

func (it *KeyIterator) isDelimiterAt(pos int) bool {
	return it.sym.PropertyDelimiter != "" &&
		strings.HasPrefix(it.key[pos:], it.sym.PropertyDelimiter)
}

func (it *KeyIterator) isEscapedAt(pos int) bool {
	return it.sym.EscapedDelimiter != "" &&
		strings.HasPrefix(it.key[pos:], it.sym.EscapedDelimiter)
}
