package lifecycle

import (
	"math"
	"time"
)

// maxBackoffSeconds is the largest whole-second delay a time.Duration can hold
const maxBackoffSeconds = int64(math.MaxInt64 / int64(time.Second))

// MaxBackoff is returned when base^attempts seconds does not fit in a time.Duration.
const MaxBackoff = time.Duration(maxBackoffSeconds) * time.Second

// BackoffDelay returns base^attempts seconds, computed with integer arithmetic.
// A base below 1 is treated as 1.
func BackoffDelay(base, attempts int) time.Duration {
	if base < 1 {
		base = 1
	}
	if attempts < 0 {
		attempts = 0
	}

	b := int64(base)
	seconds := int64(1)
	for i := 0; i < attempts; i++ {
		if seconds > maxBackoffSeconds/b {
			return MaxBackoff
		}
		seconds *= b
	}
	return time.Duration(seconds) * time.Second
}
