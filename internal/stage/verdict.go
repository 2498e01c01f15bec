package stage

// VerdictKind is the outcome class of a critic evaluation.
type VerdictKind string

const (
	// VerdictPass means upstream output met the gate's quality bar.
	VerdictPass VerdictKind = "pass"
	// VerdictRetry requests re-execution of a named upstream stage. It
	// is only honored through the retry governor.
	VerdictRetry VerdictKind = "retry"
	// VerdictFail flags a quality problem. Fatal only for blocking
	// critics; otherwise the run continues with a recorded warning.
	VerdictFail VerdictKind = "fail"
)

// Verdict is a critic's evaluation result.
type Verdict struct {
	Kind   VerdictKind
	Target string
	Reason string
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Kind: VerdictPass}
}

// Retry returns a verdict requesting re-execution of target.
func Retry(target, reason string) Verdict {
	return Verdict{Kind: VerdictRetry, Target: target, Reason: reason}
}

// Fail returns a failing verdict.
func Fail(reason string) Verdict {
	return Verdict{Kind: VerdictFail, Reason: reason}
}
