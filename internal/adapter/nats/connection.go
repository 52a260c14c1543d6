package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/revival-automotive/account-service/internal/config"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

func NewConnection(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("AccountService NATS Publisher"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}

	return nc, nil
}
