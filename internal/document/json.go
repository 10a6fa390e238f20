/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package document

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MarshalJSON implements the §4.6 fallback serialization: JSON-native
// kinds (null, bool, number, string, array, object) marshal directly;
// timestamps render as ISO-8601 with a trailing Z, bytes as hex,
// decimals as their decimal string. The fallback never raises — an
// unrecognized Kind marshals as its textual form rather than failing
// the journal write.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindBytes:
		return json.Marshal(hex.EncodeToString(v.Bytes))
	case KindTimestamp:
		return json.Marshal(v.Time.UTC().Format("2006-01-02T15:04:05.999999999Z"))
	case KindDecimal:
		return json.Marshal(v.Decimal)
	case KindSequence:
		return json.Marshal(v.Seq)
	case KindDocument:
		return json.Marshal(v.Doc)
	default:
		return json.Marshal(fmt.Sprintf("%v", v))
	}
}

// Now returns the current instant formatted the way the journal's `ts`
// field requires: UTC, ISO-8601, trailing Z.
func Now(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z")
}
