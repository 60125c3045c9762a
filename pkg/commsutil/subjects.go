package commsutil

import "fmt"

// Default COMMS subjects.
const (
	// SubjectGate is the request/reply subject served by the gate dispatcher.
	SubjectGate = "cap.gate.registration.v1"
	// SubjectRegistrationChanged carries registration change events between instances.
	SubjectRegistrationChanged = "gate.registrations.changed"
)

// BuildChangeSubject builds the per-operation change subject, e.g.
// "gate.registrations.changed.insert".
func BuildChangeSubject(op string) string {
	if op == "" {
		return SubjectRegistrationChanged
	}
	return fmt.Sprintf("%s.%s", SubjectRegistrationChanged, op)
}
