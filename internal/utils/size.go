package utils

import (
	"fmt"
)

// FormatFileSize converts a byte length into the compact unit string used by the size column.
// Values below one kibibyte are printed as plain byte counts; larger values use one decimal
// below ten units and none above, e.g. "512", "1.5K", "10M".
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0"
	}
	units := []string{"", "K", "M", "G", "T", "P"}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(units)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%d", bytes)
	}
	if value < 10 {
		return fmt.Sprintf("%.1f%s", value, units[unitIndex])
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}
