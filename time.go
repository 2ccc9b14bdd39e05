package auth

import "time"

// IsWithinThresholdPeriod reports whether t happened less than window before now
func IsWithinThresholdPeriod(now, t time.Time, window time.Duration) bool {
	return t.After(now.Add(-window))
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(now, t time.Time, window time.Duration) bool {
	return !IsWithinThresholdPeriod(now, t, window)
}
