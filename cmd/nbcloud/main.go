// nbcloud is the NetsBlox cloud daemon: project storage, collaboration,
// and the live message-routing topology.
package main

import (
	"os"

	"github.com/netsblox/cloud/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
