package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidClientID is returned when a client id does not start with an
// underscore. Validation lives here, next to the type, like the rest of
// the id parsing.
var ErrInvalidClientID = errors.New("invalid client id: must start with an underscore")

// BrowserClientState places a client in a (project, role) cell.
type BrowserClientState struct {
	RoleID    RoleID    `json:"roleId" bson:"roleId"`
	ProjectID ProjectID `json:"projectId" bson:"projectId"`
}

// ExternalClientState places a non-browser client at an app-scoped address.
type ExternalClientState struct {
	Address string `json:"address" bson:"address"`
	AppID   AppID  `json:"appId" bson:"appId"`
}

// ClientState is the placement of a live client: either editing a role in
// a project (Browser) or reachable under an app-scoped address (External).
// Exactly one of the fields is set.
//
// The JSON form is externally tagged with camelCase variant keys:
//
//	{"browser": {"projectId": "...", "roleId": "..."}}
//	{"external": {"address": "...", "appId": "..."}}
type ClientState struct {
	Browser  *BrowserClientState
	External *ExternalClientState
}

// NewBrowserState returns a browser placement.
func NewBrowserState(projectID ProjectID, roleID RoleID) ClientState {
	return ClientState{Browser: &BrowserClientState{RoleID: roleID, ProjectID: projectID}}
}

// NewExternalState returns an external placement. The app id is lowercased.
func NewExternalState(address string, appID AppID) ClientState {
	return ClientState{External: &ExternalClientState{Address: address, AppID: NewAppID(string(appID))}}
}

// IsZero reports whether no placement is set.
func (s ClientState) IsZero() bool { return s.Browser == nil && s.External == nil }

func (s ClientState) MarshalJSON() ([]byte, error) {
	switch {
	case s.Browser != nil:
		return json.Marshal(map[string]*BrowserClientState{"browser": s.Browser})
	case s.External != nil:
		return json.Marshal(map[string]*ExternalClientState{"external": s.External})
	default:
		return nil, errors.New("client state has no variant set")
	}
}

func (s *ClientState) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Browser  *BrowserClientState  `json:"browser"`
		External *ExternalClientState `json:"external"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if (tagged.Browser == nil) == (tagged.External == nil) {
		return fmt.Errorf("client state must have exactly one of %q or %q", "browser", "external")
	}
	s.Browser = tagged.Browser
	s.External = tagged.External
	return nil
}

// ClientInfo describes a connected client for diagnostics.
type ClientInfo struct {
	Username *string      `json:"username,omitempty"`
	State    *ClientState `json:"state,omitempty"`
}
