// internal/engine/bias/hash.go
package bias

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"evaluation-workers/internal/models"
)

// CohortHash returns a deterministic fingerprint of the cohort composition,
// used to key memoized reports. Completed evaluations are immutable, so an
// application's id, status and scored-evaluation count capture everything
// that can change a report. Input order does not affect the hash.
func CohortHash(cohort []CohortEntry) string {
	lines := make([]string, 0, len(cohort))
	for _, entry := range cohort {
		scored := 0
		for _, e := range entry.Evaluations {
			if e.Status == models.EvaluationCompleted && e.OverallScore != nil {
				scored++
			}
		}
		lines = append(lines, fmt.Sprintf("%s|%s|%d", entry.Application.ID, entry.Application.Status, scored))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
