package hosts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

func TestAuthorizeOnce(t *testing.T) {
	ctx := context.Background()
	actions := NewActions(storage.NewMemoryHosts())

	secret, err := actions.Authorize(ctx, auth.AuthorizeHost{}, "https://svc.example.com", "svc", api.ServiceHostScope{Private: true})
	require.NoError(t, err)
	assert.NotEmpty(t, secret)

	_, err = actions.Authorize(ctx, auth.AuthorizeHost{}, "https://svc.example.com", "svc", api.ServiceHostScope{Private: true})
	assert.ErrorIs(t, err, errs.ErrHostAlreadyAuthorized)

	hosts, err := actions.ListHosts(ctx, auth.ViewAuthHosts{})
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "svc", hosts[0].ID)
}

func TestUnauthorizeFreesTheID(t *testing.T) {
	ctx := context.Background()
	actions := NewActions(storage.NewMemoryHosts())

	_, err := actions.Authorize(ctx, auth.AuthorizeHost{}, "https://svc.example.com", "svc", api.ServiceHostScope{Public: []string{"robots"}})
	require.NoError(t, err)

	removed, err := actions.Unauthorize(ctx, auth.AuthorizeHost{}, "svc")
	require.NoError(t, err)
	assert.Equal(t, "https://svc.example.com", removed.URL)

	_, err = actions.Unauthorize(ctx, auth.AuthorizeHost{}, "svc")
	assert.ErrorIs(t, err, errs.ErrServiceHostNotFound)

	_, err = actions.Authorize(ctx, auth.AuthorizeHost{}, "https://svc.example.com", "svc", api.ServiceHostScope{Private: true})
	assert.NoError(t, err)
}
