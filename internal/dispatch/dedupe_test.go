package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/models"
)

func TestPartitionExactDuplicates(t *testing.T) {
	a := dispatchLead("a", "alice")
	b := dispatchLead("b", "alice2")
	b.Name = a.Name
	b.Message = a.Message

	unique, duplicates := Partition([]models.Lead{a, b})
	assert.Len(t, unique, 1)
	assert.Len(t, duplicates, 1)
	assert.Equal(t, "a", unique[0].ID, "the first occurrence wins")
	assert.Equal(t, "b", duplicates[0].ID)
}

func TestPartitionNoFalsePositives(t *testing.T) {
	a := dispatchLead("a", "alice")

	differentText := a
	differentText.ID = "b"
	differentText.Message = "a different message"

	differentTime := a
	differentTime.ID = "c"
	differentTime.Timestamp = a.Timestamp.Add(time.Minute)

	differentChannel := a
	differentChannel.ID = "d"
	differentChannel.Channel = "Other Chat"

	unique, duplicates := Partition([]models.Lead{a, differentText, differentTime, differentChannel})
	assert.Len(t, unique, 4)
	assert.Empty(t, duplicates)
}

func TestPartitionEmpty(t *testing.T) {
	unique, duplicates := Partition(nil)
	assert.Empty(t, unique)
	assert.Empty(t, duplicates)
}
