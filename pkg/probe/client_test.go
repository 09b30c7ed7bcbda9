package probe

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/projectdiscovery/pingtop/pkg/expand"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func echoBytes(t *testing.T, typ icmp.Type, id, seq int) []byte {
	t.Helper()
	msg := &icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: make([]byte, DefaultPayloadSize)},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return b
}

func TestClientDispatch(t *testing.T) {
	v4 := netip.MustParseAddr("198.51.100.7")
	v6 := netip.MustParseAddr("2001:db8::7")

	tests := []struct {
		name       string
		family     expand.Family
		privileged bool
		waitFor    echoKey
		reply      []byte
		peer       net.Addr
		want       bool
	}{
		{
			name:       "privileged ipv4 reply",
			family:     expand.FamilyIPv4,
			privileged: true,
			waitFor:    echoKey{addr: v4, id: 4242, seq: 3},
			peer:       &net.IPAddr{IP: net.ParseIP("198.51.100.7")},
			want:       true,
		},
		{
			name:       "privileged ipv4 reply with foreign identifier",
			family:     expand.FamilyIPv4,
			privileged: true,
			waitFor:    echoKey{addr: v4, id: 1111, seq: 3},
			peer:       &net.IPAddr{IP: net.ParseIP("198.51.100.7")},
			want:       false,
		},
		{
			name:    "unprivileged reply ignores identifier",
			family:  expand.FamilyIPv4,
			waitFor: echoKey{addr: v4, seq: 3},
			peer:    &net.UDPAddr{IP: net.ParseIP("198.51.100.7").To4()},
			want:    true,
		},
		{
			name:       "reply from another host",
			family:     expand.FamilyIPv4,
			privileged: true,
			waitFor:    echoKey{addr: v4, id: 4242, seq: 3},
			peer:       &net.IPAddr{IP: net.ParseIP("198.51.100.8")},
			want:       false,
		},
		{
			name:       "echo request is not a reply",
			family:     expand.FamilyIPv4,
			privileged: true,
			waitFor:    echoKey{addr: v4, id: 4242, seq: 3},
			reply:      echoBytes(t, ipv4.ICMPTypeEcho, 4242, 3),
			peer:       &net.IPAddr{IP: net.ParseIP("198.51.100.7")},
			want:       false,
		},
		{
			name:       "privileged ipv6 reply",
			family:     expand.FamilyIPv6,
			privileged: true,
			waitFor:    echoKey{addr: v6, id: 4242, seq: 3},
			reply:      echoBytes(t, ipv6.ICMPTypeEchoReply, 4242, 3),
			peer:       &net.IPAddr{IP: net.ParseIP("2001:db8::7")},
			want:       true,
		},
		{
			name:       "garbage",
			family:     expand.FamilyIPv4,
			privileged: true,
			waitFor:    echoKey{addr: v4, id: 4242, seq: 3},
			reply:      []byte{0x01},
			peer:       &net.IPAddr{IP: net.ParseIP("198.51.100.7")},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(tt.family, Config{Privileged: tt.privileged})
			waiter := make(chan time.Time, 1)
			_ = client.pending.Set(tt.waitFor, waiter)

			reply := tt.reply
			if reply == nil {
				reply = echoBytes(t, ipv4.ICMPTypeEchoReply, 4242, 3)
			}
			received := time.Now()

			if got := client.dispatch(reply, tt.peer, received); got != tt.want {
				t.Fatalf("dispatch() = %v, want %v", got, tt.want)
			}
			if !tt.want {
				return
			}
			select {
			case at := <-waiter:
				if !at.Equal(received) {
					t.Errorf("waiter got %v, want %v", at, received)
				}
			default:
				t.Error("waiter did not receive the reply")
			}
		})
	}
}

func TestClientNewSession(t *testing.T) {
	client := newClient(expand.FamilyIPv4, Config{Privileged: true})

	session, err := client.NewSession(netip.MustParseAddr("192.0.2.1"))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	echo, ok := session.(*echoSession)
	if !ok {
		t.Fatalf("NewSession() returned %T", session)
	}
	if echo.id < 0 || echo.id > 0xffff {
		t.Errorf("session identifier %d outside 16 bits", echo.id)
	}
	if _, ok := echo.dst.(*net.IPAddr); !ok {
		t.Errorf("privileged session destination is %T, want *net.IPAddr", echo.dst)
	}

	if _, err := client.NewSession(netip.MustParseAddr("2001:db8::1")); !errors.Is(err, ErrFamilyMismatch) {
		t.Errorf("NewSession(ipv6) error = %v, want ErrFamilyMismatch", err)
	}

	_ = client.Close()
	if _, err := client.NewSession(netip.MustParseAddr("192.0.2.1")); !errors.Is(err, ErrClosed) {
		t.Errorf("NewSession() after Close error = %v, want ErrClosed", err)
	}
}

func TestClientReadBufferSize(t *testing.T) {
	tests := []struct {
		payloadSize int
		want        int
	}{
		{payloadSize: 0, want: minReadBufferSize},
		{payloadSize: DefaultPayloadSize, want: minReadBufferSize},
		{payloadSize: 1472, want: minReadBufferSize},
		{payloadSize: 4000, want: 4000 + icmpHeaderLen + maxIPHeaderLen},
		{payloadSize: 65000, want: 65000 + icmpHeaderLen + maxIPHeaderLen},
	}

	for _, tt := range tests {
		client := newClient(expand.FamilyIPv4, Config{Privileged: true, PayloadSize: tt.payloadSize})
		if got := client.readBufferSize(); got != tt.want {
			t.Errorf("readBufferSize() with payload %d = %d, want %d", tt.payloadSize, got, tt.want)
		}
	}
}

func TestClientDispatchLargeReply(t *testing.T) {
	addr := netip.MustParseAddr("198.51.100.9")
	client := newClient(expand.FamilyIPv4, Config{Privileged: true, PayloadSize: 4000})

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Body: &icmp.Echo{ID: 77, Seq: 1, Data: make([]byte, 4000)},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if len(b) > client.readBufferSize() {
		t.Fatalf("reply of %d bytes does not fit the %d byte read buffer", len(b), client.readBufferSize())
	}

	waiter := make(chan time.Time, 1)
	_ = client.pending.Set(client.key(addr, 77, 1), waiter)
	if !client.dispatch(b, &net.IPAddr{IP: addr.AsSlice()}, time.Now()) {
		t.Error("dispatch() did not match a full-size reply")
	}
}

func TestListenNetwork(t *testing.T) {
	tests := []struct {
		family      expand.Family
		config      Config
		wantNetwork string
		wantAddress string
	}{
		{family: expand.FamilyIPv4, config: Config{Privileged: true}, wantNetwork: "ip4:icmp", wantAddress: "0.0.0.0"},
		{family: expand.FamilyIPv4, wantNetwork: "udp4", wantAddress: "0.0.0.0"},
		{family: expand.FamilyIPv6, config: Config{Privileged: true}, wantNetwork: "ip6:ipv6-icmp", wantAddress: "::"},
		{family: expand.FamilyIPv6, config: Config{ListenAddr: "fd00::1"}, wantNetwork: "udp6", wantAddress: "fd00::1"},
		{family: 0},
	}

	for _, tt := range tests {
		network, address := listenNetwork(tt.family, tt.config)
		if network != tt.wantNetwork || address != tt.wantAddress {
			t.Errorf("listenNetwork(%s, %+v) = %q %q, want %q %q", tt.family, tt.config, network, address, tt.wantNetwork, tt.wantAddress)
		}
	}
}

func TestResultStats(t *testing.T) {
	result := Result{
		Addr:     netip.MustParseAddr("192.0.2.9"),
		RTTs:     []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond},
		Attempts: 4,
	}

	if got := result.Mean(); got != 20*time.Millisecond {
		t.Errorf("Mean() = %v, want 20ms", got)
	}
	if got := result.Min(); got != 10*time.Millisecond {
		t.Errorf("Min() = %v, want 10ms", got)
	}
	if got := result.Max(); got != 30*time.Millisecond {
		t.Errorf("Max() = %v, want 30ms", got)
	}
	if got := result.Loss(); got != 0.25 {
		t.Errorf("Loss() = %v, want 0.25", got)
	}
	if got := result.Smoothed(); got < result.Min() || got > result.Max() {
		t.Errorf("Smoothed() = %v, want within [%v, %v]", got, result.Min(), result.Max())
	}

	single := Result{RTTs: []time.Duration{42 * time.Millisecond}, Attempts: 1}
	if got := single.Smoothed(); got != 42*time.Millisecond {
		t.Errorf("Smoothed() of one sample = %v, want 42ms", got)
	}

	empty := Result{Attempts: 4}
	if empty.Mean() != 0 || empty.Smoothed() != 0 || empty.Loss() != 1 {
		t.Errorf("empty result stats = mean %v smoothed %v loss %v", empty.Mean(), empty.Smoothed(), empty.Loss())
	}
}
