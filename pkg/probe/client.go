package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/projectdiscovery/pingtop/pkg/expand"
	mapsutil "github.com/projectdiscovery/utils/maps"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/time/rate"
)

// DefaultPayloadSize matches the classic ping payload
const DefaultPayloadSize = 56

const (
	// icmpHeaderLen is the echo header preceding the payload
	icmpHeaderLen     = 8
	// maxIPHeaderLen is the largest IPv4 header a raw socket may hand back
	maxIPHeaderLen    = 60
	// minReadBufferSize covers an Ethernet MTU worth of reply
	minReadBufferSize = 1500
)

// Config configures a Client
type Config struct {
	// Privileged selects raw ICMP sockets, otherwise datagram ICMP sockets are used
	Privileged bool
	// ListenAddr is the local address to bind, empty binds the wildcard address
	ListenAddr string
	// PayloadSize is the echo payload length in bytes
	PayloadSize int
	// Limiter paces echo requests, it may be shared between clients
	Limiter *rate.Limiter
}

// Client is a shared ICMP endpoint for one address family.
// It is safe for concurrent use by any number of sessions.
type Client struct {
	family     expand.Family
	privileged bool
	conn       net.PacketConn
	limiter    *rate.Limiter
	payload    []byte

	// pending tracks in-flight echo requests waiting for their reply
	pending *mapsutil.SyncLockMap[echoKey, chan time.Time]

	done      chan struct{}
	closeOnce sync.Once
}

// echoKey identifies an in-flight echo request.
// id is zero for unprivileged sockets where the kernel owns the identifier.
type echoKey struct {
	addr netip.Addr
	id   int
	seq  int
}

// NewClient opens the ICMP endpoint for family and starts reading replies
func NewClient(family expand.Family, config Config) (*Client, error) {
	network, address := listenNetwork(family, config)
	if network == "" {
		return nil, fmt.Errorf("%w: unsupported family %s", ErrSessionConstruction, family)
	}

	conn, err := icmp.ListenPacket(network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s %s: %v", ErrSessionConstruction, network, address, err)
	}

	client := newClient(family, config)
	client.conn = conn
	go client.receive()

	return client, nil
}

func newClient(family expand.Family, config Config) *Client {
	payloadSize := config.PayloadSize
	if payloadSize <= 0 {
		payloadSize = DefaultPayloadSize
	}
	return &Client{
		family:     family,
		privileged: config.Privileged,
		limiter:    config.Limiter,
		payload:    make([]byte, payloadSize),
		pending:    mapsutil.NewSyncLockMap[echoKey, chan time.Time](),
		done:       make(chan struct{}),
	}
}

// listenNetwork returns the icmp.ListenPacket arguments for family
func listenNetwork(family expand.Family, config Config) (network, address string) {
	switch family {
	case expand.FamilyIPv4:
		network, address = "udp4", "0.0.0.0"
		if config.Privileged {
			network = "ip4:icmp"
		}
	case expand.FamilyIPv6:
		network, address = "udp6", "::"
		if config.Privileged {
			network = "ip6:ipv6-icmp"
		}
	default:
		return "", ""
	}
	if config.ListenAddr != "" {
		address = config.ListenAddr
	}
	return network, address
}

// Family returns the address family the client probes
func (c *Client) Family() expand.Family {
	return c.family
}

// NewSession opens an echo session towards addr with a random identifier
func (c *Client) NewSession(addr netip.Addr) (Session, error) {
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	if !c.family.Matches(addr) {
		return nil, fmt.Errorf("%w: %s on %s client", ErrFamilyMismatch, addr, c.family)
	}

	session := &echoSession{
		client: c,
		addr:   addr,
		id:     rand.Intn(0xffff + 1),
	}
	if c.privileged {
		session.dst = &net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	} else {
		session.dst = &net.UDPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	}
	return session, nil
}

// Close stops the receiver and releases the socket
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// receive reads replies until the connection is closed
func (c *Client) receive() {
	reply := make([]byte, c.readBufferSize())
	for {
		n, peer, err := c.conn.ReadFrom(reply)
		received := time.Now()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		c.dispatch(reply[:n], peer, received)
	}
}

// readBufferSize returns a buffer length that holds a full echo reply
func (c *Client) readBufferSize() int {
	size := len(c.payload) + icmpHeaderLen + maxIPHeaderLen
	if size < minReadBufferSize {
		return minReadBufferSize
	}
	return size
}

// dispatch hands a reply to the session waiting for it, reporting whether one was found
func (c *Client) dispatch(b []byte, peer net.Addr, received time.Time) bool {
	rm, err := icmp.ParseMessage(c.protocol(), b)
	if err != nil {
		return false
	}
	if rm.Type != c.replyType() {
		return false
	}
	echo, ok := rm.Body.(*icmp.Echo)
	if !ok {
		return false
	}

	addr, ok := peerAddr(peer)
	if !ok {
		return false
	}
	if c.family == expand.FamilyIPv4 {
		addr = addr.Unmap()
	}

	waiter, exists := c.pending.Get(c.key(addr, echo.ID, echo.Seq))
	if !exists {
		return false
	}
	select {
	case waiter <- received:
	default:
	}
	return true
}

func (c *Client) key(addr netip.Addr, id, seq int) echoKey {
	key := echoKey{addr: addr.WithZone(""), seq: seq}
	if c.privileged {
		key.id = id
	}
	return key
}

// wait blocks until the limiter allows another echo request
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) protocol() int {
	if c.family == expand.FamilyIPv6 {
		return ipv6.ICMPTypeEchoReply.Protocol()
	}
	return ipv4.ICMPTypeEchoReply.Protocol()
}

func (c *Client) requestType() icmp.Type {
	if c.family == expand.FamilyIPv6 {
		return ipv6.ICMPTypeEchoRequest
	}
	return ipv4.ICMPTypeEcho
}

func (c *Client) replyType() icmp.Type {
	if c.family == expand.FamilyIPv6 {
		return ipv6.ICMPTypeEchoReply
	}
	return ipv4.ICMPTypeEchoReply
}

func peerAddr(peer net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch p := peer.(type) {
	case *net.IPAddr:
		ip = p.IP
	case *net.UDPAddr:
		ip = p.IP
	default:
		return netip.Addr{}, false
	}
	return netip.AddrFromSlice(ip)
}
