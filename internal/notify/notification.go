package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/textnorm"
)

// Notification is one stored, user-visible alert about a change.
type Notification struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	CreatedAt time.Time    `json:"createdAt"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Payload   slots.Change `json:"payload"`
	Channel   Channel      `json:"channel"`
}

// Matches reports whether an active subscription covers the change. The
// normalized query must appear in the normalized specialist, section and key
// text, either as a substring or as a word-wise loose match.
func Matches(sub Subscription, change slots.Change) bool {
	if !sub.Active {
		return false
	}
	needle := textnorm.Normalize(sub.Query)
	if needle == "" {
		return false
	}
	haystack := textnorm.Normalize(change.Specialist + " " + change.Section + " " + change.Key)
	return strings.Contains(haystack, needle) || query.WordWiseLooseMatch(haystack, needle)
}

// Title is the notification headline for a change.
func Title(change slots.Change) string {
	return "Slot update: " + change.Specialist
}

// Message is the notification body for a change.
func Message(change slots.Change) string {
	current := slots.Deref(change.CurrentFirstAvailable, "unknown")
	switch change.Reason {
	case slots.ReasonOpenedSlots:
		return "Slots opened. First available: " + current
	case slots.ReasonEarlierSlot:
		return fmt.Sprintf("Earlier slot found: %s (was %s)", current, slots.Deref(change.PreviousFirstAvailable, "unknown"))
	default:
		return "New specialist with slots. First available: " + current
	}
}

// NewNotification builds the notification for one (subscription, change) pair.
func NewNotification(sub Subscription, change slots.Change, now time.Time) Notification {
	return Notification{
		ID:        "notif_" + uuid.NewString(),
		UserID:    sub.UserID,
		CreatedAt: now.UTC(),
		Title:     Title(change),
		Message:   Message(change),
		Payload:   change,
		Channel:   sub.Channel(),
	}
}
