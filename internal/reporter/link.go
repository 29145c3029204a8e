package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aircrouching/delator/internal/models"
)

// ParseMessageLink parses a sharable t.me message link into a report target.
// Two shapes resolve: t.me/c/<internalId>/<messageId> for private chats and
// supergroups (the internal id gets the canonical -100 prefix), and
// t.me/<handle>/<messageId> for public chats and users. Parsing is pure;
// malformed input yields an error, never a partial target.
func ParseMessageLink(raw string) (models.ReportTarget, error) {
	link := strings.TrimSpace(raw)
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")

	parts := strings.Split(strings.Trim(link, "/"), "/")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "t.me") {
		return models.ReportTarget{}, fmt.Errorf("not a t.me message link: %q", raw)
	}

	// t.me/c/<internalId>/<messageId>
	if parts[1] == "c" {
		if len(parts) != 4 {
			return models.ReportTarget{}, fmt.Errorf("malformed private chat link: %q", raw)
		}
		if _, err := strconv.ParseUint(parts[2], 10, 64); err != nil {
			return models.ReportTarget{}, fmt.Errorf("invalid chat id in link %q: %w", raw, err)
		}
		chatID, err := strconv.ParseInt("-100"+parts[2], 10, 64)
		if err != nil {
			return models.ReportTarget{}, fmt.Errorf("invalid chat id in link %q: %w", raw, err)
		}
		messageID, err := strconv.Atoi(parts[3])
		if err != nil {
			return models.ReportTarget{}, fmt.Errorf("invalid message id in link %q: %w", raw, err)
		}
		return models.ReportTarget{ChatID: chatID, MessageID: messageID}, nil
	}

	// t.me/<handle>/<messageId>
	if len(parts) != 3 || parts[1] == "" {
		return models.ReportTarget{}, fmt.Errorf("malformed public chat link: %q", raw)
	}
	messageID, err := strconv.Atoi(parts[2])
	if err != nil {
		return models.ReportTarget{}, fmt.Errorf("invalid message id in link %q: %w", raw, err)
	}
	return models.ReportTarget{Handle: parts[1], MessageID: messageID}, nil
}
