package uid

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// RecordIDLength matches the 24 hex digit identifiers the production backend
// hands out, so twin ids look the same on the wire.
const RecordIDLength = 24

// New generates a new request identifier.
func New() string {
	return uuid.New().String()
}

// NewRecordID generates an opaque record identifier.
func NewRecordID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:RecordIDLength]
}

// IsRecordID checks if a string has the shape of a record identifier.
func IsRecordID(id string) bool {
	if len(id) != RecordIDLength {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
