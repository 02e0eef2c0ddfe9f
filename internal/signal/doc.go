// Package signal classifies received signal strength readings.
//
// A reading is a signed integer in dBm-like units; larger (less negative)
// values mean a closer or stronger transmitter. Two independent scales are
// provided and both are total over all integers:
//
//	Bucket (3 levels, used for grouping and icons)
//	  >= -60  High
//	  >= -70  Medium
//	  else    Low
//
//	Quality (4 levels, used for textual detail)
//	  >= -60  Excellent
//	  >= -70  Good
//	  >= -80  Fair
//	  else    Poor
//
// Boundary values belong to the stronger tier.
//
// # Usage Example
//
//	rssi := -72
//	fmt.Printf("%s (%s) %s\n", signal.Format(rssi), signal.Describe(rssi), signal.Classify(rssi))
//	// -72 dBm (Fair) Low
package signal
