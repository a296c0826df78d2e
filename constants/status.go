package constants

// RecognitionState tracks a single recognition request through the fallback
// chain and the parse step.
type RecognitionState string

// Stable values (these exact strings appear in logs).
const (
	StatePending RecognitionState = "PENDING" // request received, no provider attempted yet
	StateCalling RecognitionState = "CALLING" // a provider call is in flight
	StateParsing RecognitionState = "PARSING" // provider text obtained, structuring fields
	StateDone    RecognitionState = "DONE"    // terminal success (possibly degraded)
	StateFailed  RecognitionState = "FAILED"  // terminal: chain exhausted or image rejected
)
