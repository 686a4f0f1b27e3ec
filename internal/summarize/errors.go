package summarize

import "errors"

// ErrSummarizationFailure is the non-fatal sentinel for structured-output
// parse failures after retries, or timeout (spec §7). Summarize itself never
// returns this error to callers — it is exposed for tests and logging that
// want to classify the failure path that led to usedFallback=true.
var ErrSummarizationFailure = errors.New("summarization failed, falling back to snippet")
