package projects

import (
	"fmt"
	"strings"

	"github.com/netsblox/cloud/internal/errs"
)

// maxNameLen bounds project and role names.
const maxNameLen = 64

// validateName enforces the naming rules shared by projects and roles:
// non-empty, at most maxNameLen characters, and no '@' (which would
// collide with the message address syntax).
func validateName(name string) error {
	if name == "" || len(name) > maxNameLen || strings.Contains(name, "@") {
		return errs.ErrInvalidName
	}
	return nil
}

// uniqueName returns basename if it is not taken, else "basename (k)"
// for the smallest k >= 2 that is free.
func uniqueName(taken []string, basename string) string {
	inUse := make(map[string]bool, len(taken))
	for _, name := range taken {
		inUse[name] = true
	}
	if !inUse[basename] {
		return basename
	}
	for k := 2; ; k++ {
		candidate := fmt.Sprintf("%s (%d)", basename, k)
		if !inUse[candidate] {
			return candidate
		}
	}
}
