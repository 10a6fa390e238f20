/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sampling

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// score computes the deterministic 64-bit score used by both the
// deterministic key-selection path and the bucket-id ranking: the first
// eight bytes of SHA-256("seed:value"), read big-endian.
func score(seed uint32, value string) uint64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", seed, value)))
	return binary.BigEndian.Uint64(sum[:8])
}
