// Package libraries holds the library-vetting rules applied when a
// project is published. Role code referencing blocks that can run
// arbitrary code on viewers' machines needs moderator approval before it
// becomes publicly listed.
package libraries

import "strings"

// approvalMarkers are the block references that gate publishing behind
// moderation. reportJSFunction embeds raw JavaScript in a project.
var approvalMarkers = []string{
	"reportJSFunction",
}

// IsApprovalRequired reports whether the role code uses any block that
// requires moderation before public listing.
func IsApprovalRequired(code string) bool {
	for _, marker := range approvalMarkers {
		if strings.Contains(code, marker) {
			return true
		}
	}
	return false
}
