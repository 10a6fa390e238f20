/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package document holds the dynamic document shape shared by every source
// and target driver: an unordered mapping from field names to tagged-sum
// values. Source and target drivers decode wire-level values (BSON, JSON)
// into this shape so the diff and sampling engines never depend on a
// specific backend's native types.
package document

import (
	"sort"
	"time"
)

// Kind identifies the runtime type of a Value. Two values with different
// Kinds are never equal, even when they represent the "same" number (an
// int and a float holding 1 are a type_mismatch, not a value_mismatch —
// see spec.md §9's numeric-kind open question).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTimestamp
	KindDecimal
	KindSequence
	KindDocument
)

// String returns the kind name as carried in type_mismatch diffs.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTimestamp:
		return "timestamp"
	case KindDecimal:
		return "decimal"
	case KindSequence:
		return "sequence"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Document is an unordered mapping from field name to Value. Insertion
// order is not significant for equality or diffing.
type Document map[string]Value

// Value is the tagged-sum type for every value a document field can hold.
// Only the field matching Kind is meaningful; the zero Value is KindNull.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Bytes   []byte
	Time    time.Time
	Decimal string
	Seq     []Value
	Doc     Document
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t} }
func Decimal(d string) Value     { return Value{Kind: KindDecimal, Decimal: d} }
func Sequence(s []Value) Value   { return Value{Kind: KindSequence, Seq: s} }
func FromDocument(d Document) Value { return Value{Kind: KindDocument, Doc: d} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports structural value equality. Values of different Kind are
// never equal — callers that need a type_mismatch/value_mismatch
// distinction should check Kind first (see internal/differ).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindBytes:
		return bytesEqual(v.Bytes, other.Bytes)
	case KindTimestamp:
		return v.Time.Equal(other.Time)
	case KindDecimal:
		return v.Decimal == other.Decimal
	case KindSequence:
		if len(v.Seq) != len(other.Seq) {
			return false
		}
		for i := range v.Seq {
			if !v.Seq[i].Equal(other.Seq[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		if len(v.Doc) != len(other.Doc) {
			return false
		}
		for k, vv := range v.Doc {
			ov, ok := other.Doc[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SortedKeys returns a Document's field names in sorted order, used by
// the diff engine's union-of-keys walk and by Canonical's stable
// encoding of nested documents.
func (d Document) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
