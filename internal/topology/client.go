package topology

import (
	"encoding/json"

	"github.com/netsblox/cloud/internal/api"
)

// ClientHandle is the transport side of a connected client. Send must not
// block: implementations queue the frame and drop it (returning an error)
// when the client cannot keep up. Messaging is best-effort, so send
// failures are logged by the caller, never retried.
type ClientHandle interface {
	Send(frame []byte) error
}

// client is one live connection with its optional placement and username.
type client struct {
	id       api.ClientID
	handle   ClientHandle
	username string
	state    *api.ClientState
}

// frame builds an outbound JSON frame: the payload's fields plus the
// "type" discriminator browser clients dispatch on.
func frame(typ string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		// Outbound payloads are our own types; failing to marshal one is
		// a programming error.
		panic(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		panic(err)
	}
	typeTag, _ := json.Marshal(typ)
	fields["type"] = typeTag
	out, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return out
}
