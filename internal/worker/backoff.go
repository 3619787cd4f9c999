package worker

import "time"

// retryDelays is the fixed backoff schedule between successive attempts,
// indexed by the new retry count: 1 min after the first failure, 5 min
// after the second, 15 min after the third.
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

// retryDelay returns the backoff delay for the given retry count
// (1-based). Counts beyond the table reuse the last delay.
func retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > len(retryDelays) {
		retryCount = len(retryDelays)
	}
	return retryDelays[retryCount-1]
}

// RetryDelaysSeconds returns the backoff schedule in seconds, for the
// health endpoint's retry_config block.
func RetryDelaysSeconds() []int {
	out := make([]int, len(retryDelays))
	for i, d := range retryDelays {
		out[i] = int(d / time.Second)
	}
	return out
}
