package xid

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// InvoiceNumber renders INV-<base36 unix millis>-<4 random base36 chars>,
// all upper case.
func InvoiceNumber(at time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	return "INV-" + stamp + "-" + randomBase36(4, at)
}

func randomBase36(n int, at time.Time) string {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(base36)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand unavailable; derive from the clock instead.
			b.WriteByte(clockChar(at, i))
			continue
		}
		b.WriteByte(base36[idx.Int64()])
	}
	return b.String()
}

// clockChar picks the i-th fallback character from the clock. The unsigned
// view keeps the index in range for instants before 1970.
func clockChar(at time.Time, i int) byte {
	return base36[(uint64(at.UnixNano())>>(i*5))%uint64(len(base36))]
}
