package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint digests what a submission covered: the sorted client names, the
// declared date range, the day count and the first/last submitted date. It
// deliberately excludes totals, which are recomputed after every merge, so
// resubmitting identical data always reproduces the same fingerprint.
func Fingerprint(clients []string, dateStart, dateEnd string, dayCount int, firstDay, lastDay string) string {
	names := append([]string(nil), clients...)
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s",
		strings.Join(names, ","), dateStart, dateEnd, dayCount, firstDay, lastDay)
	return hex.EncodeToString(h.Sum(nil))
}
