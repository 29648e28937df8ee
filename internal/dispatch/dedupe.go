package dispatch

import (
	"telegram-lead-scanner-go/internal/models"
)

// Partition splits leads into unique and duplicate sets. Two leads are
// duplicates when name, channel, timestamp and message text all match;
// the first occurrence wins and later copies are reported separately so
// the caller can log how many were skipped.
func Partition(leads []models.Lead) (unique []models.Lead, duplicates []models.Lead) {
	seen := make(map[string]bool, len(leads))
	for _, lead := range leads {
		key := lead.DedupeKey()
		if seen[key] {
			duplicates = append(duplicates, lead)
			continue
		}
		seen[key] = true
		unique = append(unique, lead)
	}
	return unique, duplicates
}
