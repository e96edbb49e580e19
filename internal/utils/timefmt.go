package utils

import (
	"time"
)

const timestampLayout = "2006-01-02 15:04"

// FormatTimestamp renders a modification time for the -D column in the host time zone.
// A zero time, as reported for entries without metadata, renders empty.
func FormatTimestamp(modificationTime time.Time) string {
	if modificationTime.IsZero() {
		return ""
	}
	return modificationTime.In(time.Local).Format(timestampLayout)
}
