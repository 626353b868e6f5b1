package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitOtelWithoutEndpoint(t *testing.T) {
	shutdown, err := InitOtel(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitOtelLazyConnection(t *testing.T) {
	// grpc.NewClient does not dial, so an unreachable collector is not an error here.
	shutdown, err := InitOtel(context.Background(), "127.0.0.1:1")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
}
