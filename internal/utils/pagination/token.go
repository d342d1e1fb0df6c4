package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// EncodeJournalToken creates a base64 encoded token from the last journal date and journal id of a page.
// Journal listings are ordered by (journal_date DESC, journal_id DESC).
func EncodeJournalToken(journalDate time.Time, journalID string) string {
	tokenStr := fmt.Sprintf("%s|%s", journalDate.UTC().Format(timeFormat), journalID)
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeJournalToken parses the base64 encoded token back into journal date and journal id.
func DecodeJournalToken(token string) (time.Time, string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	tokenStr := string(decodedBytes)
	parts := strings.SplitN(tokenStr, "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (split)")
	}

	journalDate, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (journal date parse): %w", err)
	}

	return journalDate, parts[1], nil
}

// EncodeKeyToken creates a token for single string key pagination, e.g. account codes.
func EncodeKeyToken(key string) string {
	return base64.StdEncoding.EncodeToString([]byte(key))
}

// DecodeKeyToken decodes a token created by EncodeKeyToken.
func DecodeKeyToken(token string) (string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	if len(decodedBytes) == 0 {
		return "", fmt.Errorf("invalid pagination token format (empty key)")
	}
	return string(decodedBytes), nil
}
