/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package document

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Canonical returns a stable string encoding of v, used both as the
// deterministic-sampling hash input and as the per-element key when
// comparing order-insensitive arrays as multisets. Documents are keyed
// in sorted order, timestamps render as ISO-8601, bytes as hex, and
// decimals as their decimal string — everything else falls back to a
// textual form. Two values that are Equal produce the same Canonical
// string, with one exception: float zero and negative zero are Equal but
// encode as "0" and "-0". The encoding is not guaranteed to be
// human-readable but is guaranteed to be stable.
func Canonical(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	case KindBytes:
		return hex.EncodeToString(v.Bytes)
	case KindTimestamp:
		return v.Time.UTC().Format(time.RFC3339Nano)
	case KindDecimal:
		return v.Decimal
	case KindSequence:
		parts := make([]string, len(v.Seq))
		for i, e := range v.Seq {
			parts[i] = Canonical(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindDocument:
		keys := v.Doc.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + Canonical(v.Doc[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "<unknown>"
	}
}

// Histogram counts the canonical encodings of a sequence's elements,
// used to compare order-insensitive arrays as multisets.
func Histogram(seq []Value) map[string]int {
	h := make(map[string]int, len(seq))
	for _, e := range seq {
		h[Canonical(e)]++
	}
	return h
}

// HistogramsEqual reports whether two canonical-encoding histograms
// represent the same multiset.
func HistogramsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
