package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeJournalToken(t *testing.T) {
	// Test case 1: Standard date and id
	journalDate := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	token := EncodeJournalToken(journalDate, "journal-1")
	assert.NotEmpty(t, token, "Token should not be empty")

	decodedDate, decodedID, err := DecodeJournalToken(token)
	assert.NoError(t, err, "Decoding should not return an error")
	assert.Equal(t, journalDate, decodedDate, "Journal date should match after decode")
	assert.Equal(t, "journal-1", decodedID, "Journal id should match after decode")

	// Test case 2: Non-UTC times come back as the same instant
	local := time.Date(2024, 7, 15, 9, 30, 0, 123456789, time.FixedZone("IST", 5*3600+1800))
	decodedLocal, _, err := DecodeJournalToken(EncodeJournalToken(local, "journal-2"))
	assert.NoError(t, err, "Decoding should not return an error")
	assert.True(t, local.Equal(decodedLocal), "Instant should match after decode")

	// Test case 3: ids containing the separator survive
	_, decodedPipe, err := DecodeJournalToken(EncodeJournalToken(journalDate, "a|b"))
	assert.NoError(t, err)
	assert.Equal(t, "a|b", decodedPipe, "Only the first separator splits the token")
}

func TestDecodeJournalTokenError(t *testing.T) {
	// Test invalid base64
	_, _, err := DecodeJournalToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode", "Error should mention base64 decoding")

	// Test invalid format (missing separator)
	invalidToken := "MjAyMy0wNS0xNVQwMDowMDowMFo=" // Base64 encoded date without separator
	_, _, err = DecodeJournalToken(invalidToken)
	assert.Error(t, err, "Should return an error for invalid token format")
	assert.Contains(t, err.Error(), "split", "Error should mention splitting issue")

	// Test invalid date format
	invalidDateToken := EncodeKeyToken("notadate|journal-1")
	_, _, err = DecodeJournalToken(invalidDateToken)
	assert.Error(t, err, "Should return an error for invalid date format")
	assert.Contains(t, err.Error(), "journal date parse", "Error should mention date parsing issue")
}

func TestEncodeDecodeKeyToken(t *testing.T) {
	token := EncodeKeyToken("1000")

	decoded, err := DecodeKeyToken(token)
	assert.NoError(t, err, "Decoding should not return an error")
	assert.Equal(t, "1000", decoded, "Key should match after decode")

	_, err = DecodeKeyToken("")
	assert.Error(t, err, "An empty token carries no key")

	_, err = DecodeKeyToken("%%%")
	assert.Error(t, err, "Should return an error for invalid base64")
}
