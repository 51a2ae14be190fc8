package topology

import (
	"errors"
	"strings"

	"github.com/netsblox/cloud/internal/api"
)

// DefaultAppID is the app id browser clients live under. Addresses with
// no explicit app list resolve against it.
const DefaultAppID = api.AppID("netsblox")

// ErrEmptyAddress is returned when an address string has no content
// before the app suffix.
var ErrEmptyAddress = errors.New("empty message address")

// ClientAddress is a parsed message address of the form
//
//	[role@]project@owner[#app1,app2,...]
//
// For the default app, Address ("role@project" or "project") resolves
// against the owner's projects. For any other app, the whole address
// string (minus the app suffix) is the lookup key in that app's flat
// namespace; the app controls its own naming.
type ClientAddress struct {
	// Address is everything left of the owner: "role@project", "project",
	// or empty when the address has a single chunk.
	Address string

	// UserID is the rightmost @-chunk, the project owner for the default
	// app.
	UserID string

	// AppIDs are the lowercased target apps, [DefaultAppID] when absent.
	AppIDs []api.AppID
}

// ParseAddress parses an address string.
func ParseAddress(s string) (ClientAddress, error) {
	addrPart := s
	apps := []api.AppID{DefaultAppID}

	if at := strings.Index(s, "#"); at >= 0 {
		addrPart = s[:at]
		apps = apps[:0]
		for _, name := range strings.Split(s[at+1:], ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				apps = append(apps, api.NewAppID(name))
			}
		}
		if len(apps) == 0 {
			apps = []api.AppID{DefaultAppID}
		}
	}

	if addrPart == "" {
		return ClientAddress{}, ErrEmptyAddress
	}

	address := ""
	userID := addrPart
	if at := strings.LastIndex(addrPart, "@"); at >= 0 {
		address = addrPart[:at]
		userID = addrPart[at+1:]
	}

	return ClientAddress{Address: address, UserID: userID, AppIDs: apps}, nil
}

// appString reconstructs the address without its app suffix; this is the
// lookup key in non-default app namespaces.
func (a ClientAddress) appString() string {
	if a.Address == "" {
		return a.UserID
	}
	return a.Address + "@" + a.UserID
}

// projectAndRole splits Address into the requested project name and an
// optional role name. An empty role matches every role of the project.
func (a ClientAddress) projectAndRole() (project string, role string) {
	chunks := strings.Split(a.Address, "@")
	project = chunks[len(chunks)-1]
	if len(chunks) > 1 {
		role = chunks[len(chunks)-2]
	}
	return project, role
}
