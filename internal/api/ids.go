// Package api defines the wire and storage types shared by the cloud
// services: typed identifiers, client placement state, project metadata,
// room state broadcasts, and collaboration records.
//
// All JSON uses camelCase field names. ClientState serializes in its
// externally-tagged form ({"browser": {...}} / {"external": {...}}) so
// browser clients and external apps can round-trip it unchanged.
package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClientID identifies a live connection. Issued by the transport layer on
// connect; always begins with an underscore to keep client ids disjoint
// from usernames and public addresses.
type ClientID string

// ParseClientID validates and returns a ClientID.
func ParseClientID(s string) (ClientID, error) {
	if !strings.HasPrefix(s, "_") {
		return "", fmt.Errorf("%w: %q", ErrInvalidClientID, s)
	}
	return ClientID(s), nil
}

func (id ClientID) String() string { return string(id) }

// ProjectID identifies a project. UUID-shaped but treated opaquely.
type ProjectID string

func (id ProjectID) String() string { return string(id) }

// RoleID identifies a role within a project.
type RoleID string

func (id RoleID) String() string { return string(id) }

// GroupID identifies a group (class).
type GroupID string

func (id GroupID) String() string { return string(id) }

// S3Key is an opaque blob store key.
type S3Key string

func (k S3Key) String() string { return string(k) }

// AppID scopes the flat address namespace used by external (non-browser)
// clients. Case-insensitive; stored lowercased.
type AppID string

// NewAppID lowercases and returns an AppID.
func NewAppID(s string) AppID { return AppID(strings.ToLower(s)) }

func (a AppID) String() string { return string(a) }

// UnmarshalJSON lowercases the app id on decode so lookups never depend on
// the caller's casing.
func (a *AppID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid app id: expected a string: %w", err)
	}
	*a = NewAppID(s)
	return nil
}
