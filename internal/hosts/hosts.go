// Package hosts manages authorized service hosts: third-party RPC
// services trusted to act on behalf of users. Authorizing a host mints a
// shared secret it presents on later requests.
package hosts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

// Actions is the authorized-host service.
type Actions struct {
	log   *logrus.Entry
	hosts storage.Hosts
}

// NewActions builds the service.
func NewActions(hosts storage.Hosts) *Actions {
	return &Actions{
		log:   logrus.WithField("component", "hosts"),
		hosts: hosts,
	}
}

// ListHosts returns every authorized host.
func (a *Actions) ListHosts(ctx context.Context, _ auth.ViewAuthHosts) ([]api.AuthorizedServiceHost, error) {
	return a.hosts.List(ctx)
}

// Authorize registers the host and returns the minted secret. A host id
// can only be authorized once.
func (a *Actions) Authorize(ctx context.Context, _ auth.AuthorizeHost, url, id string, visibility api.ServiceHostScope) (string, error) {
	host := api.NewAuthorizedServiceHost(url, id, visibility)
	created, err := a.hosts.Authorize(ctx, host)
	if err != nil {
		return "", err
	}
	if !created {
		return "", errs.ErrHostAlreadyAuthorized
	}
	a.log.WithFields(logrus.Fields{"hostId": id, "url": url}).Info("service host authorized")
	return host.Secret, nil
}

// Unauthorize removes the host and returns its last state.
func (a *Actions) Unauthorize(ctx context.Context, _ auth.AuthorizeHost, id string) (api.AuthorizedServiceHost, error) {
	host, err := a.hosts.Unauthorize(ctx, id)
	if err != nil {
		return api.AuthorizedServiceHost{}, err
	}
	a.log.WithField("hostId", id).Info("service host deauthorized")
	return *host, nil
}
