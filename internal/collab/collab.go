// Package collab implements collaboration invites: issuing, listing, and
// responding. Accepting an invite adds the recipient to the project's
// collaborator set and pushes the new room view to its occupants.
package collab

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/projects"
	"github.com/netsblox/cloud/internal/storage"
)

// Network is the slice of the topology engine the invite service drives.
type Network interface {
	// SendInviteTo pushes the invite to the recipient's live clients.
	SendInviteTo(username string, invite api.CollaborationInvite)

	// SendRoomState broadcasts the room view built from md.
	SendRoomState(md api.ProjectMetadata)
}

// Actions is the collaboration-invite service.
type Actions struct {
	log      *logrus.Entry
	invites  storage.Invites
	projects storage.Projects
	cache    *projects.MetadataCache
	network  Network
}

// NewActions builds the service.
func NewActions(invites storage.Invites, projectStore storage.Projects, cache *projects.MetadataCache, network Network) *Actions {
	return &Actions{
		log:      logrus.WithField("component", "collab"),
		invites:  invites,
		projects: projectStore,
		cache:    cache,
		network:  network,
	}
}

// SendInvite issues a pending invite and notifies the recipient's live
// clients. At most one pending invite exists per (sender, receiver,
// project); a duplicate returns errs.ErrInviteExists.
func (a *Actions) SendInvite(ctx context.Context, eu auth.EditUser, projectID api.ProjectID, receiver string) (api.CollaborationInvite, error) {
	invite := api.NewCollaborationInvite(eu.Username, receiver, projectID)
	created, err := a.invites.CreatePending(ctx, invite)
	if err != nil {
		return api.CollaborationInvite{}, err
	}
	if !created {
		return api.CollaborationInvite{}, errs.ErrInviteExists
	}

	a.network.SendInviteTo(receiver, invite)
	a.log.WithFields(logrus.Fields{"sender": invite.Sender, "receiver": receiver, "projectId": projectID}).
		Info("collaboration invite sent")
	return invite, nil
}

// ListInvites lists the pending invites addressed to the user.
func (a *Actions) ListInvites(ctx context.Context, vu auth.ViewUser) ([]api.CollaborationInvite, error) {
	return a.invites.ListForReceiver(ctx, vu.Username)
}

// Respond resolves an invite. Both outcomes delete the stored row, so a
// rejected invite leaves no record and the sender may invite again.
// Accepting adds the receiver to the project's collaborators and
// broadcasts the new room view.
func (a *Actions) Respond(ctx context.Context, eu auth.EditUser, inviteID string, response api.InvitationState) (api.InvitationState, error) {
	invite, err := a.invites.ByID(ctx, inviteID)
	if err != nil {
		return "", err
	}
	if invite.Receiver != eu.Username {
		return "", errs.ErrForbidden
	}
	if err := a.invites.Delete(ctx, inviteID); err != nil {
		return "", err
	}

	if response == api.InvitationAccepted {
		md, err := a.projects.AddCollaborator(ctx, invite.ProjectID, invite.Receiver)
		if err != nil {
			return "", err
		}
		a.cache.Put(*md)
		a.network.SendRoomState(*md)
	}
	return response, nil
}
