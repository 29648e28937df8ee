package classifier

import (
	"fmt"
	"strings"
	"time"

	"telegram-lead-scanner-go/internal/models"
)

// messagesPlaceholder lets the criteria prompt control where the rendered
// message block lands. Criteria without the placeholder get the block
// appended.
const messagesPlaceholder = "${messagesText}"

// buildPrompt renders a chunk of messages into the criteria template.
// Messages are annotated with the author's other messages in the same chunk
// so the model sees per-author context.
func (c *Classifier) buildPrompt(msgs []models.Message, criteria string) string {
	byAuthor := make(map[string][]models.Message)
	for _, m := range msgs {
		byAuthor[m.Author()] = append(byAuthor[m.Author()], m)
	}

	var b strings.Builder
	for i, m := range msgs {
		fmt.Fprintf(&b, "Message %d:\nID: %d\nChannel: %s\nAuthor: %s\nTimestamp: %s\nContent: %s",
			i+1, m.ID, m.ChatTitle, m.Author(), m.Timestamp.Format(time.RFC3339), m.Text)

		others := 0
		for _, other := range byAuthor[m.Author()] {
			if other.ID == m.ID {
				continue
			}
			if others == 0 {
				b.WriteString("\nOther messages from this author in this batch:")
			}
			others++
			fmt.Fprintf(&b, "\n  - Message %d: %q (%s)", others, other.Text, other.Timestamp.Format(time.RFC3339))
		}
		b.WriteString("\n---\n")
	}

	messagesText := b.String()
	if strings.Contains(criteria, messagesPlaceholder) {
		return strings.ReplaceAll(criteria, messagesPlaceholder, messagesText)
	}
	return criteria + "\n\n" + messagesText
}
