package models

import "time"

// Day is one day in epoch milliseconds.
const Day int64 = 24 * 60 * 60 * 1000

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Time converts epoch milliseconds to a UTC time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
