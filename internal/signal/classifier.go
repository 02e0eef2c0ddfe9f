package signal

import (
	"fmt"
	"math"
)

// Tier thresholds in dBm. Each is the inclusive lower bound of its tier.
const (
	StrongThreshold = -60
	MediumThreshold = -70
	WeakThreshold   = -80
)

// Unknown is the reading reported by sources that cannot measure signal
// strength. It classifies as Low/Poor.
const Unknown = math.MinInt16

// Bucket is the coarse 3-level signal category.
type Bucket int

const (
	Low Bucket = iota
	Medium
	High
)

// String returns the display name of the bucket
func (b Bucket) String() string {
	switch b {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// Quality is the 4-level textual signal description.
type Quality int

const (
	Poor Quality = iota
	Fair
	Good
	Excellent
)

// String returns the display name of the quality level
func (q Quality) String() string {
	switch q {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	case Poor:
		return "Poor"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// Classify maps a reading to its 3-level bucket.
func Classify(rssi int) Bucket {
	switch {
	case rssi >= StrongThreshold:
		return High
	case rssi >= MediumThreshold:
		return Medium
	default:
		return Low
	}
}

// Describe maps a reading to its 4-level quality description.
func Describe(rssi int) Quality {
	switch {
	case rssi >= StrongThreshold:
		return Excellent
	case rssi >= MediumThreshold:
		return Good
	case rssi >= WeakThreshold:
		return Fair
	default:
		return Poor
	}
}

// Bars returns the number of signal bars (1-4) to draw for a reading.
func Bars(rssi int) int {
	return int(Describe(rssi)) + 1
}

// Format renders a reading for display, e.g. "-55 dBm".
// Unknown readings render as "n/a".
func Format(rssi int) string {
	if rssi == Unknown {
		return "n/a"
	}
	return fmt.Sprintf("%d dBm", rssi)
}
