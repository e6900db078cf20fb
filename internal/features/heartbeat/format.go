package heartbeat

import "fmt"

// FormatNumber renders n with two decimals and a K/M/B suffix.
// Suffix thresholds are inclusive: 1000 is "1.00K".
func FormatNumber(n float64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", n/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.2fK", n/1_000)
	default:
		return fmt.Sprintf("%.2f", n)
	}
}
