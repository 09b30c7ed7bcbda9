package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
)

// Pinger opens echo sessions towards single hosts
type Pinger interface {
	NewSession(addr netip.Addr) (Session, error)
}

// Session performs echo exchanges with one host.
// Exchanges on a session must not overlap.
type Session interface {
	// Ping sends one echo request with sequence number seq and waits up to
	// timeout for the matching reply, returning the round-trip time
	Ping(ctx context.Context, seq int, timeout time.Duration) (time.Duration, error)
}

type echoSession struct {
	client *Client
	addr   netip.Addr
	id     int
	dst    net.Addr
}

func (s *echoSession) Ping(ctx context.Context, seq int, timeout time.Duration) (time.Duration, error) {
	if err := s.client.wait(ctx); err != nil {
		return 0, err
	}

	msg := &icmp.Message{
		Type: s.client.requestType(),
		Code: 0,
		Body: &icmp.Echo{
			ID:   s.id,
			Seq:  seq,
			Data: s.client.payload,
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	key := s.client.key(s.addr, s.id, seq)
	reply := make(chan time.Time, 1)
	_ = s.client.pending.Set(key, reply)
	defer s.client.pending.Delete(key)

	sent := time.Now()
	if _, err := s.client.conn.WriteTo(msgBytes, s.dst); err != nil {
		return 0, fmt.Errorf("failed to send echo to %s: %w", s.addr, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case received := <-reply:
		return received.Sub(sent), nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.client.done:
		return 0, ErrClosed
	}
}
