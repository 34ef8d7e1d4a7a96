package expr

import (
	"strconv"
	"strings"
)

// Key is a configuration key under construction or examination. It wraps the
// raw key text together with the symbols that govern its syntax. Keys are
// built with Append/AppendIndex/AppendAttribute and taken apart with
// Iterator.
type Key struct {
	sym Symbols
	buf strings.Builder
}

// NewKey creates a key from the given text. Leading and trailing unescaped
// delimiters are removed.
func NewKey(sym Symbols, key string) *Key {
	k := &Key{sym: sym}
	k.buf.WriteString(trimKey(sym, key))
	return k
}

// EmptyKey creates an empty key for the given symbols.
func EmptyKey(sym Symbols) *Key {
	return &Key{sym: sym}
}

// String returns the key text.
func (k *Key) String() string {
	return k.buf.String()
}

// Length returns the length of the key text.
func (k *Key) Length() int {
	return k.buf.Len()
}

// Append adds a property segment. With escape set, delimiters inside the
// segment are escaped so the segment survives a later iteration intact.
func (k *Key) Append(property string, escape bool) *Key {
	part := property
	if escape && k.sym.EscapedDelimiter != "" {
		part = strings.ReplaceAll(part, k.sym.PropertyDelimiter, k.sym.EscapedDelimiter)
	}
	part = trimKey(k.sym, part)
	if k.buf.Len() > 0 && part != "" && !k.IsAttributeKey(property) {
		k.buf.WriteString(k.sym.PropertyDelimiter)
	}
	k.buf.WriteString(part)
	return k
}

// AppendIndex adds an index marker for the given sibling index.
func (k *Key) AppendIndex(index int) *Key {
	if k.sym.IndexStart == "" || k.sym.IndexEnd == "" {
		return k
	}
	k.buf.WriteString(k.sym.IndexStart)
	k.buf.WriteString(strconv.Itoa(index))
	k.buf.WriteString(k.sym.IndexEnd)
	return k
}

// AppendAttribute adds an attribute segment.
func (k *Key) AppendAttribute(name string) *Key {
	k.buf.WriteString(k.ConstructAttributeKey(name))
	return k
}

// ConstructAttributeKey decorates an attribute name with the attribute
// markers. Without configured markers the attribute is addressed like a
// regular property behind a delimiter.
func (k *Key) ConstructAttributeKey(name string) string {
	if name == "" {
		return ""
	}
	if k.sym.AttributeStart == "" {
		return k.sym.PropertyDelimiter + name
	}
	return k.sym.AttributeStart + name + k.sym.AttributeEnd
}

// IsAttributeKey reports whether the given key text is wrapped in attribute
// markers.
func (k *Key) IsAttributeKey(key string) bool {
	if key == "" || k.sym.AttributeStart == "" {
		return false
	}
	return strings.HasPrefix(key, k.sym.AttributeStart) &&
		(k.sym.AttributeEnd == "" || strings.HasSuffix(key, k.sym.AttributeEnd))
}

// Trim removes unescaped delimiters from both ends of the key.
func (k *Key) Trim() *Key {
	text := trimKey(k.sym, k.buf.String())
	k.buf.Reset()
	k.buf.WriteString(text)
	return k
}

// TrimLeft removes leading unescaped delimiters.
func (k *Key) TrimLeft() *Key {
	text := trimLeft(k.sym, k.buf.String())
	k.buf.Reset()
	k.buf.WriteString(text)
	return k
}

// TrimRight removes trailing unescaped delimiters.
func (k *Key) TrimRight() *Key {
	text := trimRight(k.sym, k.buf.String())
	k.buf.Reset()
	k.buf.WriteString(text)
	return k
}

// CommonKey returns the longest common prefix of this key and other, in
// whole segments.
func (k *Key) CommonKey(other *Key) *Key {
	result := EmptyKey(k.sym)
	it1 := k.Iterator()
	it2 := other.Iterator()
	for it1.HasNext() && it2.HasNext() {
		it1.NextKey()
		it2.NextKey()
		if !segmentsEqual(it1, it2) {
			break
		}
		if it1.isParsedAttribute() {
			result.AppendAttribute(it1.CurrentKey())
		} else {
			result.Append(it1.CurrentKey(), false)
			if it1.HasIndex() {
				result.AppendIndex(it1.Index())
			}
		}
	}
	return result
}

// DifferenceKey returns the part of other that remains after removing the
// common prefix with this key. If the keys have nothing in common, other is
// returned unchanged.
func (k *Key) DifferenceKey(other *Key) *Key {
	common := k.CommonKey(other)
	if common.Length() >= other.Length() {
		return EmptyKey(k.sym)
	}
	rest := other.String()[common.Length():]
	return NewKey(k.sym, rest)
}

// Iterator returns a cursor over the key's segments.
func (k *Key) Iterator() *KeyIterator {
	return &KeyIterator{sym: k.sym, key: k.buf.String(), index: -1}
}

func segmentsEqual(a, b *KeyIterator) bool {
	return a.CurrentKey() == b.CurrentKey() &&
		a.HasIndex() == b.HasIndex() && a.Index() == b.Index() &&
		a.isParsedAttribute() == b.isParsedAttribute()
}

// trimKey removes unescaped delimiters from both ends of the key text.
func trimKey(sym Symbols, key string) string {
	return trimRight(sym, trimLeft(sym, key))
}

func trimLeft(sym Symbols, key string) string {
	for hasLeadingDelimiter(sym, key) {
		key = key[len(sym.PropertyDelimiter):]
	}
	return key
}

func trimRight(sym Symbols, key string) string {
	for hasTrailingDelimiter(sym, key) {
		key = key[:len(key)-len(sym.PropertyDelimiter)]
	}
	return key
}

// hasLeadingDelimiter reports an unescaped delimiter at the start of key.
func hasLeadingDelimiter(sym Symbols, key string) bool {
	if sym.PropertyDelimiter == "" || !strings.HasPrefix(key, sym.PropertyDelimiter) {
		return false
	}
	return sym.EscapedDelimiter == "" || !strings.HasPrefix(key, sym.EscapedDelimiter)
}

// hasTrailingDelimiter reports an unescaped delimiter at the end of key.
func hasTrailingDelimiter(sym Symbols, key string) bool {
	if sym.PropertyDelimiter == "" || !strings.HasSuffix(key, sym.PropertyDelimiter) {
		return false
	}
	return sym.EscapedDelimiter == "" || !strings.HasSuffix(key, sym.EscapedDelimiter)
}
