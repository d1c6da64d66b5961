package transport

import (
	"fmt"

	"seqx/internal/transform"
)

// Dial connects to a catalog served by StartServer on localhost:port.
func Dial(port int) (*transform.GRPCClient, error) {
	return transform.NewGRPCClient(fmt.Sprintf("localhost:%d", port))
}
