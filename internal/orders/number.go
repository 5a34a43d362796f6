package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// NewOrderNumber produces a human-shareable order number: "SH-" plus the six
// trailing digits of the millisecond timestamp and a three-digit random
// disambiguator, e.g. SH-123456042. Collisions are statistically negligible;
// the unique orderNumber index catches the rest and the engine retries once.
func NewOrderNumber(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}

	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fall back to the clock; uniqueness is still enforced by the index.
		return fmt.Sprintf("SH-%s%03d", ts, now.Nanosecond()%1000)
	}
	n := int(binary.BigEndian.Uint16(buf[:])) % 1000

	return fmt.Sprintf("SH-%s%03d", ts, n)
}
