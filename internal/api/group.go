package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ServiceHost is an RPC services endpoint advertised to clients.
type ServiceHost struct {
	URL        string   `json:"url" bson:"url"`
	Categories []string `json:"categories" bson:"categories"`
}

// Group is a collection of member accounts (a class) owned by a user.
type Group struct {
	ID              GroupID           `json:"id" bson:"id"`
	Owner           string            `json:"owner" bson:"owner"`
	Name            string            `json:"name" bson:"name"`
	ServicesHosts   []ServiceHost     `json:"servicesHosts,omitempty" bson:"servicesHosts,omitempty"`
	ServiceSettings map[string]string `json:"serviceSettings,omitempty" bson:"serviceSettings,omitempty"`
}

// NewGroup returns a fresh group for the owner.
func NewGroup(owner, name string) Group {
	return Group{
		ID:              GroupID(uuid.NewString()),
		Owner:           owner,
		Name:            name,
		ServiceSettings: map[string]string{},
	}
}

// User is the slice of the account document the core reads: identity and
// group membership for room broadcasts and group member listings.
type User struct {
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	GroupID   *GroupID  `json:"groupId,omitempty" bson:"groupId,omitempty"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ServiceHostScope is the visibility of an authorized service host:
// public over a set of categories, or private.
//
// Wire form is externally tagged: {"public": ["cat", ...]} or "private".
type ServiceHostScope struct {
	Public  []string
	Private bool
}

func (s ServiceHostScope) MarshalJSON() ([]byte, error) {
	if s.Private {
		return json.Marshal("private")
	}
	return json.Marshal(map[string][]string{"public": s.Public})
}

func (s *ServiceHostScope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str != "private" {
			return fmt.Errorf("invalid service host scope %q", str)
		}
		*s = ServiceHostScope{Private: true}
		return nil
	}
	var tagged struct {
		Public []string `json:"public"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	*s = ServiceHostScope{Public: tagged.Public}
	return nil
}

// AuthorizedServiceHost is a service host trusted to send messages on
// behalf of users. The secret is issued on authorization and never
// serialized back out.
type AuthorizedServiceHost struct {
	URL        string           `json:"url" bson:"url"`
	ID         string           `json:"id" bson:"id"`
	Visibility ServiceHostScope `json:"visibility" bson:"visibility"`
	Secret     string           `json:"-" bson:"secret"`
}

// NewAuthorizedServiceHost mints a host entry with a fresh secret.
func NewAuthorizedServiceHost(url, id string, visibility ServiceHostScope) AuthorizedServiceHost {
	return AuthorizedServiceHost{
		URL:        url,
		ID:         id,
		Visibility: visibility,
		Secret:     uuid.NewString(),
	}
}
