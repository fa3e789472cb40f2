package camunda

import (
	"context"
	"fmt"
	"time"

	"gigbook-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const defaultConnectionTimeout = 10 * time.Second

// NewClient connects to the Zeebe gateway and verifies the connection with a topology request.
func NewClient(ctx context.Context, cfg config.CamundaConfig) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	timeout := defaultConnectionTimeout
	if cfg.RequestTimeout > 0 {
		timeout = config.GetDuration(cfg.RequestTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}

	return client, nil
}
