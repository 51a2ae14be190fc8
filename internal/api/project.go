package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppName is the name browser clients report and the default app id is
// derived from.
const AppName = "NetsBlox"

// SaveState tracks how far a project is from being durably owned by its
// user. Created and Transient projects are garbage-collected when fully
// evacuated; Broken projects get a deletion cool-down; Saved is terminal.
type SaveState string

const (
	SaveStateCreated   SaveState = "Created"
	SaveStateTransient SaveState = "Transient"
	SaveStateBroken    SaveState = "Broken"
	SaveStateSaved     SaveState = "Saved"
)

// PublishState is the visibility of a project. Ordered:
// Private < ApprovalDenied < PendingApproval < Public.
type PublishState string

const (
	PublishStatePrivate         PublishState = "Private"
	PublishStateApprovalDenied  PublishState = "ApprovalDenied"
	PublishStatePendingApproval PublishState = "PendingApproval"
	PublishStatePublic          PublishState = "Public"
)

// rank returns the ordering position of the state.
func (s PublishState) rank() int {
	switch s {
	case PublishStateApprovalDenied:
		return 1
	case PublishStatePendingApproval:
		return 2
	case PublishStatePublic:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as visible as other.
func (s PublishState) AtLeast(other PublishState) bool { return s.rank() >= other.rank() }

// RoleMetadata describes a stored role: its name and the blob keys holding
// its code and media.
type RoleMetadata struct {
	Name    string    `json:"name" bson:"name"`
	Code    S3Key     `json:"code" bson:"code"`
	Media   S3Key     `json:"media" bson:"media"`
	Updated time.Time `json:"updated" bson:"updated"`
}

// NetworkTraceMetadata records a message-trace capture window.
type NetworkTraceMetadata struct {
	ID        string     `json:"id" bson:"id"`
	StartTime time.Time  `json:"startTime" bson:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// ProjectMetadata is the persisted project document (without role blobs).
type ProjectMetadata struct {
	ID            ProjectID               `json:"id" bson:"id"`
	Owner         string                  `json:"owner" bson:"owner"`
	Name          string                  `json:"name" bson:"name"`
	Updated       time.Time               `json:"updated" bson:"updated"`
	OriginTime    time.Time               `json:"originTime" bson:"originTime"`
	State         PublishState            `json:"state" bson:"state"`
	SaveState     SaveState               `json:"saveState" bson:"saveState"`
	DeleteAt      *time.Time              `json:"deleteAt,omitempty" bson:"deleteAt,omitempty"`
	Collaborators []string                `json:"collaborators" bson:"collaborators"`
	NetworkTraces []NetworkTraceMetadata  `json:"networkTraces" bson:"networkTraces"`
	Roles         map[RoleID]RoleMetadata `json:"roles" bson:"roles"`
}

// NewProjectMetadata builds metadata for a fresh project with the given
// roles. The id and role ids are fresh UUIDs.
func NewProjectMetadata(owner, name string, roles []RoleMetadata, saveState SaveState) ProjectMetadata {
	now := time.Now().UTC()
	roleMap := make(map[RoleID]RoleMetadata, len(roles))
	for _, role := range roles {
		role.Updated = now
		roleMap[RoleID(uuid.NewString())] = role
	}
	return ProjectMetadata{
		ID:            ProjectID(uuid.NewString()),
		Owner:         owner,
		Name:          name,
		Updated:       now,
		OriginTime:    now,
		State:         PublishStatePrivate,
		SaveState:     saveState,
		Collaborators: []string{},
		NetworkTraces: []NetworkTraceMetadata{},
		Roles:         roleMap,
	}
}

// RoleData is a fully-hydrated role: name plus code and media content.
type RoleData struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Media string `json:"media"`
}

// ToXML renders the role in the room XML export format.
func (r RoleData) ToXML() string {
	name := strings.ReplaceAll(r.Name, `"`, `\"`)
	return fmt.Sprintf("<role name=\"%s\">%s%s</role>", name, r.Code, r.Media)
}

// Project is a fully-hydrated project: metadata joined with role content.
type Project struct {
	ID            ProjectID           `json:"id"`
	Owner         string              `json:"owner"`
	Name          string              `json:"name"`
	Updated       time.Time           `json:"updated"`
	OriginTime    time.Time           `json:"originTime"`
	State         PublishState        `json:"state"`
	SaveState     SaveState           `json:"saveState"`
	Collaborators []string            `json:"collaborators"`
	Roles         map[RoleID]RoleData `json:"roles"`
}

// ToXML renders the project as a room document.
func (p Project) ToXML() string {
	roles := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		roles = append(roles, role.ToXML())
	}
	return fmt.Sprintf("<room name=\"%s\" app=\"%s\">%s</room>", p.Name, AppName, strings.Join(roles, " "))
}

// CreateProjectData is the request payload for project creation.
type CreateProjectData struct {
	Owner     string     `json:"owner,omitempty"`
	Name      string     `json:"name"`
	Roles     []RoleData `json:"roles,omitempty"`
	ClientID  *ClientID  `json:"clientId,omitempty"`
	SaveState *SaveState `json:"saveState,omitempty"`
}

// RoomState is the live occupancy view of a project, broadcast to every
// occupant as a "room-roles" frame whenever the room changes.
type RoomState struct {
	ID            ProjectID             `json:"id"`
	Owner         string                `json:"owner"`
	Name          string                `json:"name"`
	Roles         map[RoleID]RoleState  `json:"roles"`
	Collaborators []string              `json:"collaborators"`
	Version       uint64                `json:"version"`
}

// RoleState is the occupancy of a single role.
type RoleState struct {
	Name      string          `json:"name"`
	Occupants []OccupantState `json:"occupants"`
}

// OccupantState is one live client in a role. Name is the username, or
// "guest" for anonymous clients.
type OccupantState struct {
	ID   ClientID `json:"id"`
	Name string   `json:"name"`
}
