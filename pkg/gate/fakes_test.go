package gate

import (
	"errors"

	"github.com/morezero/gate-registration/pkg/gate/gatetest"
)

var _ Repository = (*gatetest.MemoryRepo)(nil)

// gateCode returns the GateError code of err, or "" for other errors.
func gateCode(err error) string {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
