package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientID(t *testing.T) {
	id, err := ParseClientID("_netsblox1234")
	require.NoError(t, err)
	assert.Equal(t, ClientID("_netsblox1234"), id)

	_, err = ParseClientID("netsblox1234")
	assert.ErrorIs(t, err, ErrInvalidClientID)
}

func TestAppIDLowercased(t *testing.T) {
	var appID AppID
	require.NoError(t, json.Unmarshal([]byte(`"NetsBlox"`), &appID))
	assert.Equal(t, AppID("netsblox"), appID)
	assert.Equal(t, NewAppID("netsblox"), appID)
}

func TestAppIDRejectsNonString(t *testing.T) {
	var appID AppID
	err := json.Unmarshal([]byte(`42`), &appID)
	assert.Error(t, err)
}

func TestClientStateBrowserJSON(t *testing.T) {
	state := NewBrowserState("p1", "r1")
	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"browser":{"projectId":"p1","roleId":"r1"}}`, string(data))

	var decoded ClientState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, state, decoded)
}

func TestClientStateExternalJSON(t *testing.T) {
	data := []byte(`{"external":{"address":"sensors/1","appId":"IoTHub"}}`)

	var state ClientState
	require.NoError(t, json.Unmarshal(data, &state))
	require.NotNil(t, state.External)
	assert.Equal(t, "sensors/1", state.External.Address)
	assert.Equal(t, AppID("iothub"), state.External.AppID)
}

func TestClientStateRejectsAmbiguous(t *testing.T) {
	var state ClientState
	err := json.Unmarshal([]byte(`{}`), &state)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"browser":{"projectId":"p","roleId":"r"},"external":{"address":"a","appId":"b"}}`), &state)
	assert.Error(t, err)
}

func TestPublishStateOrdering(t *testing.T) {
	assert.True(t, PublishStatePendingApproval.AtLeast(PublishStatePrivate))
	assert.True(t, PublishStatePublic.AtLeast(PublishStatePendingApproval))
	assert.True(t, PublishStatePublic.AtLeast(PublishStatePublic))
	assert.False(t, PublishStatePrivate.AtLeast(PublishStateApprovalDenied))
}

func TestInvitationStateWireForm(t *testing.T) {
	data, err := json.Marshal(InvitationPending)
	require.NoError(t, err)
	assert.Equal(t, `"pending"`, string(data))

	state, err := ParseInvitationState("accepted")
	require.NoError(t, err)
	assert.Equal(t, InvitationAccepted, state)

	_, err = ParseInvitationState("Accepted")
	assert.Error(t, err)
}

func TestProjectToXML(t *testing.T) {
	project := Project{
		Name: "ping pong",
		Roles: map[RoleID]RoleData{
			"r1": {Name: "left", Code: "<code/>", Media: "<media/>"},
		},
	}
	xml := project.ToXML()
	assert.True(t, strings.HasPrefix(xml, `<room name="ping pong" app="NetsBlox">`))
	assert.Contains(t, xml, `<role name="left"><code/><media/></role>`)
}

func TestServiceHostScopeJSON(t *testing.T) {
	private := ServiceHostScope{Private: true}
	data, err := json.Marshal(private)
	require.NoError(t, err)
	assert.Equal(t, `"private"`, string(data))

	public := ServiceHostScope{Public: []string{"weather"}}
	data, err = json.Marshal(public)
	require.NoError(t, err)
	assert.JSONEq(t, `{"public":["weather"]}`, string(data))

	var decoded ServiceHostScope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, public, decoded)
}

func TestNewProjectMetadataDefaults(t *testing.T) {
	md := NewProjectMetadata("alice", "project", []RoleMetadata{{Name: "myRole"}}, SaveStateCreated)
	assert.NotEmpty(t, md.ID)
	assert.Equal(t, "alice", md.Owner)
	assert.Equal(t, PublishStatePrivate, md.State)
	assert.Equal(t, SaveStateCreated, md.SaveState)
	assert.Len(t, md.Roles, 1)
	for roleID, role := range md.Roles {
		assert.NotEmpty(t, roleID)
		assert.Equal(t, "myRole", role.Name)
		assert.False(t, role.Updated.IsZero())
	}
}
