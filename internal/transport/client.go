package transport

import (
	"fmt"

	"metricshape/internal/transform"
)

// Dial connects to a transformer plugin listening on localhost:port.
func Dial(port int) (*transform.GRPCClient, error) {
	return transform.NewGRPCClient(fmt.Sprintf("localhost:%d", port))
}
