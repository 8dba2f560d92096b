package queue

import "time"

// permanentBackoff pushes an exhausted job far enough into the future that
// it can never come due again. Permanence is actually enforced by the
// failed status excluding the job from FetchDue.
const permanentBackoff = 100 * 365 * 24 * time.Hour

// Schedule is an ordered list of delays between delivery attempts. The
// delay after the k-th completed attempt is Schedule[k]; the list length is
// the maximum attempt count.
type Schedule []time.Duration

// MaxAttempts returns the number of attempts before a job fails permanently.
func (s Schedule) MaxAttempts() int {
	return len(s)
}

// Exhausted reports whether a job with the given completed attempt count has
// no attempts left.
func (s Schedule) Exhausted(attemptCount int) bool {
	return attemptCount >= len(s)
}

// NextAttemptAt computes when a job that just completed its attemptCount-th
// attempt should be retried.
func (s Schedule) NextAttemptAt(now time.Time, attemptCount int) time.Time {
	if s.Exhausted(attemptCount) {
		return now.Add(permanentBackoff)
	}
	return now.Add(s[attemptCount])
}
