package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"
	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
)

// Concrete gorilla/websocket dialer and constructor.

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Header           http.Header
	// PingInterval enables keepalive pings when positive.
	PingInterval time.Duration
}

// Dial connects to the host and returns an Adapter and a cleanup.
func Dial(ctx context.Context, cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: websocket url required", berr.ErrNotConnected)
	}

	dialer := gws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("%w: websocket dial %s (status: %s): %w", berr.ErrNotConnected, cfg.URL, resp.Status, err)
		}

		return nil, nil, fmt.Errorf("%w: websocket dial %s: %w", berr.ErrNotConnected, cfg.URL, err)
	}

	ad := New(conn)
	stopPing := make(chan struct{})

	if cfg.PingInterval > 0 {
		go keepalive(ad, cfg.PingInterval, stopPing)
	}

	cleanup := func() {
		close(stopPing)
		_ = ad.Close()
	}

	return ad, cleanup, nil
}

func keepalive(ad *Adapter, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ad.Done():
			return
		case <-ticker.C:
			if err := ad.Ping(); err != nil {
				return
			}
		}
	}
}
