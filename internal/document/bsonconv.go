/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package document

import (
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FromBSON converts a decoded bson.M (or any map produced by the driver)
// into a Document, dispatching each field's value through FromAny.
func FromBSON(m bson.M) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = FromAny(v)
	}
	return doc
}

// FromAny converts a single decoded BSON value — as returned by the
// mongo-driver's generic decode path — into a Value. It is the single
// place that understands the driver's wire-level vendor types
// (ObjectID, Decimal128, Binary, DateTime, Timestamp), keeping every
// other package ignorant of the MongoDB wire format.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case int:
		return Int(int64(t))
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case bson.ObjectID:
		return Bytes(t[:])
	case bson.DateTime:
		return Timestamp(t.Time())
	case bson.Timestamp:
		return Decimal(fmt.Sprintf("%d.%d", t.T, t.I))
	case bson.Decimal128:
		return Decimal(t.String())
	case bson.Binary:
		return Bytes(t.Data)
	case bson.M:
		return FromDocument(FromBSON(t))
	case map[string]interface{}:
		return FromDocument(FromBSON(bson.M(t)))
	case bson.D:
		doc := make(Document, len(t))
		for _, e := range t {
			doc[e.Key] = FromAny(e.Value)
		}
		return FromDocument(doc)
	case bson.A:
		seq := make([]Value, len(t))
		for i, e := range t {
			seq[i] = FromAny(e)
		}
		return Sequence(seq)
	case []interface{}:
		seq := make([]Value, len(t))
		for i, e := range t {
			seq[i] = FromAny(e)
		}
		return Sequence(seq)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// ToBSON converts a Value back into a representation the mongo-driver
// accepts as a query filter argument (used to build exact-match filters
// for find_by_business_key).
func ToBSON(v Value) interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBytes:
		if len(v.Bytes) == 12 {
			var oid bson.ObjectID
			copy(oid[:], v.Bytes)
			return oid
		}
		return v.Bytes
	case KindTimestamp:
		return bson.NewDateTimeFromTime(v.Time)
	case KindDecimal:
		d, err := bson.ParseDecimal128(v.Decimal)
		if err == nil {
			return d
		}
		return v.Decimal
	case KindSequence:
		seq := make(bson.A, len(v.Seq))
		for i, e := range v.Seq {
			seq[i] = ToBSON(e)
		}
		return seq
	case KindDocument:
		doc := bson.M{}
		for k, e := range v.Doc {
			doc[k] = ToBSON(e)
		}
		return doc
	default:
		return nil
	}
}

// ToAny converts a Value into a plain Go value comparable by
// reflection, for handing to a generic interface{}-based differ (see
// internal/differ). Bytes render as a hex string and Decimal/Timestamp
// as their string forms, the same choices Canonical makes, so two
// Values of different Kind can convert to the same native Go type here
// (e.g. Bytes and Decimal both become string) — callers that need a
// type_mismatch/value_mismatch distinction recover the true Kind from
// the original Value tree, never from this conversion.
func ToAny(v Value) interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBytes:
		return hex.EncodeToString(v.Bytes)
	case KindTimestamp:
		return v.Time.UTC().Format(time.RFC3339Nano)
	case KindDecimal:
		return v.Decimal
	case KindSequence:
		seq := make([]interface{}, len(v.Seq))
		for i, e := range v.Seq {
			seq[i] = ToAny(e)
		}
		return seq
	case KindDocument:
		return DocumentToAny(v.Doc)
	default:
		return nil
	}
}

// DocumentToAny converts a Document into a map[string]interface{},
// dispatching each field through ToAny.
func DocumentToAny(d Document) map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, e := range d {
		out[k] = ToAny(e)
	}
	return out
}
