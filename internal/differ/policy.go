/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package differ

import (
	"strconv"
	"strings"
)

// Policy controls how two documents belonging to the same collection are
// compared: which fields are ignored outright, and which array-valued
// paths are compared as multisets instead of ordered sequences.
type Policy struct {
	// ExcludedFields holds both bare field names ("updated_at") and
	// dotted paths ("metadata.updated_at"). A bare name excludes every
	// field with that name at any depth; a dotted path excludes only
	// that exact path.
	ExcludedFields map[string]struct{}

	// UnorderedArrays holds dotted paths whose array values are compared
	// as multisets (histogram of canonical encodings) rather than
	// position-by-position.
	UnorderedArrays map[string]struct{}
}

// NewPolicy builds a Policy from the raw exclusion and unordered-array
// path lists carried in a collection's configuration.
func NewPolicy(excludedFields, unorderedArrays []string) Policy {
	p := Policy{
		ExcludedFields:  make(map[string]struct{}, len(excludedFields)),
		UnorderedArrays: make(map[string]struct{}, len(unorderedArrays)),
	}
	for _, f := range excludedFields {
		p.ExcludedFields[f] = struct{}{}
	}
	for _, a := range unorderedArrays {
		p.UnorderedArrays[a] = struct{}{}
	}
	return p
}

// excluded reports whether the field named leaf, reached via the dotted
// path, should be skipped entirely.
func (p Policy) excluded(path, leaf string) bool {
	if _, ok := p.ExcludedFields[leaf]; ok {
		return true
	}
	_, ok := p.ExcludedFields[path]
	return ok
}

// unordered reports whether the array at the given dotted path compares
// as a multiset.
func (p Policy) unordered(path string) bool {
	_, ok := p.UnorderedArrays[path]
	return ok
}

// join builds the dotted child path for field name under parent path.
// The root document's path is the empty string, so its direct children
// render without a leading dot.
func join(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

// indexPath builds the path for the i'th element of an array at path.
func indexPath(path string, i int) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(i))
	b.WriteByte(']')
	return b.String()
}
