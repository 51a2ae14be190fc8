package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvitationState is the lifecycle state of a collaboration invite.
// The canonical wire form is the lowercase string.
type InvitationState string

const (
	InvitationPending  InvitationState = "pending"
	InvitationAccepted InvitationState = "accepted"
	InvitationRejected InvitationState = "rejected"
)

// ParseInvitationState parses the lowercase wire form.
func ParseInvitationState(s string) (InvitationState, error) {
	switch InvitationState(s) {
	case InvitationPending, InvitationAccepted, InvitationRejected:
		return InvitationState(s), nil
	}
	return "", fmt.Errorf("invalid invitation state %q", s)
}

// CollaborationInvite asks a user to become a collaborator on a project.
// Terminal states are not persisted: responding to an invite deletes it.
type CollaborationInvite struct {
	ID        string          `json:"id" bson:"id"`
	Sender    string          `json:"sender" bson:"sender"`
	Receiver  string          `json:"receiver" bson:"receiver"`
	ProjectID ProjectID       `json:"projectId" bson:"projectId"`
	State     InvitationState `json:"state" bson:"state"`
	CreatedAt time.Time       `json:"createdAt" bson:"createdAt"`
}

// NewCollaborationInvite returns a fresh Pending invite.
func NewCollaborationInvite(sender, receiver string, projectID ProjectID) CollaborationInvite {
	return CollaborationInvite{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		ProjectID: projectID,
		State:     InvitationPending,
		CreatedAt: time.Now().UTC(),
	}
}

// InvitationResponse is the payload for responding to an invite.
type InvitationResponse struct {
	Response InvitationState `json:"response"`
}
