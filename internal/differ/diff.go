/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package differ implements the structural, path-aware document diff:
// a pure function over two documents and a Policy that produces a list
// of typed differences. It never performs I/O and never blocks.
package differ

import (
	"sort"
	"strconv"

	"github.com/r3labs/diff/v3"

	"github.com/nethesis/store-verify/internal/document"
)

// Kind classifies a single Diff.
type Kind string

const (
	KindMissingInSource Kind = "missing_in_source"
	KindMissingInTarget Kind = "missing_in_target"
	KindTypeMismatch    Kind = "type_mismatch"
	KindValueMismatch   Kind = "value_mismatch"
)

// Diff is a single structural difference found at path.
type Diff struct {
	Path   string
	Kind   Kind
	Source document.Value
	Target document.Value
}

// rootPath is what an empty path renders as in diff output.
const rootPath = "$"

// Diff compares a and b under policy, returning every structural
// difference. Excluded fields are pruned before comparison, so they
// never appear in the result; an identical pair of documents always
// yields an empty, deterministic result.
func Diff(a, b document.Document, policy Policy) []Diff {
	pa := prune(a, "", policy)
	pb := prune(b, "", policy)

	var out []Diff
	walkDocument(pa, pb, "", policy, &out)
	return out
}

// prune removes excluded fields (and recurses into nested documents)
// before the structural walk ever sees them.
func prune(d document.Document, path string, policy Policy) document.Document {
	out := make(document.Document, len(d))
	for k, v := range d {
		childPath := join(path, k)
		if policy.excluded(childPath, k) {
			continue
		}
		out[k] = pruneValue(v, childPath, policy)
	}
	return out
}

func pruneValue(v document.Value, path string, policy Policy) document.Value {
	switch v.Kind {
	case document.KindDocument:
		return document.FromDocument(prune(v.Doc, path, policy))
	case document.KindSequence:
		seq := make([]document.Value, len(v.Seq))
		for i, e := range v.Seq {
			seq[i] = pruneValue(e, indexPath(path, i), policy)
		}
		return document.Sequence(seq)
	default:
		return v
	}
}

func renderPath(path string) string {
	if path == "" {
		return rootPath
	}
	return path
}

// walk implements §4.3's structural recursion: null short-circuit, kind
// mismatch, document union-of-keys, sequence (ordered or multiset), and
// scalar comparison. Documents and scalars whose subtree contains no
// array anywhere are handed to github.com/r3labs/diff/v3 in a single
// shot (delegate) — the same library the teacher's own
// collect/differ/engine.go delegates structural comparison to. Arrays
// keep their own handling: the library has no per-path notion of
// order-insensitive comparison, so the multiset/length-mismatch rules
// below stay hand-written.
func walk(a, b document.Value, path string, policy Policy, out *[]Diff) {
	if a.IsNull() && b.IsNull() {
		return
	}

	if a.Kind != b.Kind {
		*out = append(*out, Diff{
			Path:   renderPath(path),
			Kind:   KindTypeMismatch,
			Source: document.String(a.Kind.String()),
			Target: document.String(b.Kind.String()),
		})
		return
	}

	switch a.Kind {
	case document.KindDocument:
		if hasSequence(a) || hasSequence(b) {
			walkDocument(a.Doc, b.Doc, path, policy, out)
		} else {
			delegate(a, b, path, out)
		}
	case document.KindSequence:
		if policy.unordered(path) {
			walkUnorderedSequence(a.Seq, b.Seq, path, out)
		} else {
			walkOrderedSequence(a.Seq, b.Seq, path, policy, out)
		}
	default:
		delegate(a, b, path, out)
	}
}

// hasSequence reports whether v, or any value reachable through nested
// documents, is a sequence. A subtree with no sequence anywhere can be
// compared wholesale via delegate; one that does still needs this
// package's own per-path array-ordering dispatch, applied one level at
// a time as walkDocument/walkOrderedSequence recurse.
func hasSequence(v document.Value) bool {
	switch v.Kind {
	case document.KindSequence:
		return true
	case document.KindDocument:
		for _, child := range v.Doc {
			if hasSequence(child) {
				return true
			}
		}
	}
	return false
}

// wrapperKey is the sole top-level key of the maps handed to
// diff.Diff. r3labs/diff/v3 needs a struct/map/slice at the top level,
// not a bare scalar, so every delegated comparison (whether a or b is
// itself a scalar, a nested document, or anything in between) is
// wrapped under this one key and the corresponding path segment is
// stripped back off when translating the result.
const wrapperKey = "root"

// diffValues runs a or b's document.Value conversion through
// r3labs/diff/v3. AllowTypeMismatch lets a leaf-level kind mismatch
// inside the delegated subtree surface as an "update" Change instead of
// an error; translateChange recovers the real Kind from the original
// Value trees to classify it correctly.
func diffValues(a, b document.Value) (diff.Changelog, error) {
	wa := map[string]interface{}{wrapperKey: document.ToAny(a)}
	wb := map[string]interface{}{wrapperKey: document.ToAny(b)}
	return diff.Diff(wa, wb, diff.AllowTypeMismatch(true))
}

// delegate compares a and b (guaranteed to contain no sequence) via
// diffValues and appends the translated result to out.
func delegate(a, b document.Value, path string, out *[]Diff) {
	changelog, err := diffValues(a, b)
	if err != nil {
		// diff.Diff only errors on reflect kinds document.ToAny never
		// produces (chan, func); fall back to a direct comparison
		// rather than silently dropping it.
		if !a.Equal(b) {
			*out = append(*out, Diff{Path: renderPath(path), Kind: KindValueMismatch, Source: a, Target: b})
		}
		return
	}
	for _, c := range changelog {
		translateChange(c, path, a, b, out)
	}
}

func translateChange(c diff.Change, base string, a, b document.Value, out *[]Diff) {
	segs := c.Path
	if len(segs) > 0 && segs[0] == wrapperKey {
		segs = segs[1:]
	}

	childPath := base
	for _, seg := range segs {
		childPath = join(childPath, seg)
	}

	av, aok := valueAt(a, segs)
	bv, bok := valueAt(b, segs)

	switch {
	case aok && !bok:
		*out = append(*out, Diff{Path: renderPath(childPath), Kind: KindMissingInTarget, Source: av, Target: document.Null()})
	case !aok && bok:
		*out = append(*out, Diff{Path: renderPath(childPath), Kind: KindMissingInSource, Source: document.Null(), Target: bv})
	case aok && bok && av.Kind != bv.Kind:
		*out = append(*out, Diff{
			Path:   renderPath(childPath),
			Kind:   KindTypeMismatch,
			Source: document.String(av.Kind.String()),
			Target: document.String(bv.Kind.String()),
		})
	case aok && bok:
		*out = append(*out, Diff{Path: renderPath(childPath), Kind: KindValueMismatch, Source: av, Target: bv})
	}
}

// valueAt looks up the value at a dotted path, expressed as r3labs-style
// path segments, inside a document.Value tree rooted at v. Delegated
// subtrees never contain a sequence (see hasSequence), so every segment
// here addresses a document field, never an array index.
func valueAt(v document.Value, segments []string) (document.Value, bool) {
	if len(segments) == 0 {
		return v, true
	}
	if v.Kind != document.KindDocument {
		return document.Value{}, false
	}
	child, ok := v.Doc[segments[0]]
	if !ok {
		return document.Value{}, false
	}
	return valueAt(child, segments[1:])
}

func walkDocument(a, b document.Document, path string, policy Policy, out *[]Diff) {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := join(path, k)
		av, aok := a[k]
		bv, bok := b[k]
		switch {
		case aok && !bok:
			*out = append(*out, Diff{Path: renderPath(childPath), Kind: KindMissingInTarget, Source: av, Target: document.Null()})
		case !aok && bok:
			*out = append(*out, Diff{Path: renderPath(childPath), Kind: KindMissingInSource, Source: document.Null(), Target: bv})
		default:
			walk(av, bv, childPath, policy, out)
		}
	}
}

func walkUnorderedSequence(a, b []document.Value, path string, out *[]Diff) {
	ha := document.Histogram(a)
	hb := document.Histogram(b)
	if !document.HistogramsEqual(ha, hb) {
		*out = append(*out, Diff{
			Path:   renderPath(path),
			Kind:   KindValueMismatch,
			Source: histogramValue(ha),
			Target: histogramValue(hb),
		})
	}
}

func histogramValue(h map[string]int) document.Value {
	doc := make(document.Document, len(h))
	for k, v := range h {
		doc[k] = document.Int(int64(v))
	}
	return document.FromDocument(doc)
}

func walkOrderedSequence(a, b []document.Value, path string, policy Policy, out *[]Diff) {
	if len(a) != len(b) {
		*out = append(*out, Diff{
			Path:   renderPath(path),
			Kind:   KindValueMismatch,
			Source: document.String(lenPayload(len(a))),
			Target: document.String(lenPayload(len(b))),
		})
	}

	common := len(a)
	if len(b) < common {
		common = len(b)
	}
	for i := 0; i < common; i++ {
		walk(a[i], b[i], indexPath(path, i), policy, out)
	}
	for i := common; i < len(a); i++ {
		*out = append(*out, Diff{Path: renderPath(indexPath(path, i)), Kind: KindMissingInTarget, Source: a[i], Target: document.Null()})
	}
	for i := common; i < len(b); i++ {
		*out = append(*out, Diff{Path: renderPath(indexPath(path, i)), Kind: KindMissingInSource, Source: document.Null(), Target: b[i]})
	}
}

func lenPayload(n int) string {
	return "len=" + strconv.Itoa(n)
}
