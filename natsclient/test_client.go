//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient runs a disposable NATS server in a container for integration
// tests. Callers get a connected Client with JetStream enabled.
type TestClient struct {
	container testcontainers.Container
	Client    *Client
	URL       string
}

// NewTestClient starts a NATS container with JetStream and connects to it.
// The container and connection are cleaned up via t.Cleanup.
func NewTestClient(t *testing.T, opts ...Option) *TestClient {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"--jetstream"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start NATS container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	url := fmt.Sprintf("nats://%s:%s", host, port.Port())
	client, err := Connect(url, opts...)
	if err != nil {
		t.Fatalf("connect to test NATS: %v", err)
	}

	tc := &TestClient{container: container, Client: client, URL: url}
	t.Cleanup(func() {
		client.Close()
		_ = container.Terminate(context.Background())
	})
	return tc
}
