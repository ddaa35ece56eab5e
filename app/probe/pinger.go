package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	DefaultTimeout     = 2 * time.Second
	DefaultPayloadSize = 64

	echoIdentifier = 111
	echoSequence   = 0

	protocolICMP   = 1
	protocolICMPv6 = 58

	maxReplySize = 1500
)

type Pinger interface {
	Ping(ctx context.Context, ip net.IP) (time.Duration, error)
}

var _ Pinger = (*ICMPPinger)(nil)

// ICMPPinger sends a single echo request per call. Unprivileged mode uses
// datagram ICMP sockets (net.ipv4.ping_group_range on Linux); privileged mode
// opens raw sockets and needs CAP_NET_RAW.
type ICMPPinger struct {
	timeout    time.Duration
	payload    []byte
	privileged bool
}

func NewICMPPinger(timeout time.Duration, payloadSize int, privileged bool) *ICMPPinger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if payloadSize < 0 {
		payloadSize = DefaultPayloadSize
	}

	return &ICMPPinger{
		timeout:    timeout,
		payload:    make([]byte, payloadSize),
		privileged: privileged,
	}
}

type echoParams struct {
	network  string
	listen   string
	protocol int
	request  icmp.Type
	reply    icmp.Type
	dest     net.Addr
}

func (p *ICMPPinger) params(ip net.IP) echoParams {
	var params echoParams
	if ip.To4() != nil {
		params = echoParams{network: "udp4", listen: "0.0.0.0", protocol: protocolICMP,
			request: ipv4.ICMPTypeEcho, reply: ipv4.ICMPTypeEchoReply}
		if p.privileged {
			params.network = "ip4:icmp"
		}
	} else {
		params = echoParams{network: "udp6", listen: "::", protocol: protocolICMPv6,
			request: ipv6.ICMPTypeEchoRequest, reply: ipv6.ICMPTypeEchoReply}
		if p.privileged {
			params.network = "ip6:ipv6-icmp"
		}
	}

	if p.privileged {
		params.dest = &net.IPAddr{IP: ip}
	} else {
		params.dest = &net.UDPAddr{IP: ip}
	}
	return params
}

// Ping returns the round-trip time of one echo exchange with ip. The address
// family picks ICMPv4 or ICMPv6.
func (p *ICMPPinger) Ping(ctx context.Context, ip net.IP) (time.Duration, error) {
	params := p.params(ip)

	conn, err := icmp.ListenPacket(params.network, params.listen)
	if err != nil {
		return 0, fmt.Errorf("failed to open ICMP socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, fmt.Errorf("failed to set ICMP deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	msg := icmp.Message{
		Type: params.request,
		Code: 0,
		Body: &icmp.Echo{ID: echoIdentifier, Seq: echoSequence, Data: p.payload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to encode echo request: %w", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, params.dest); err != nil {
		return 0, fmt.Errorf("failed to send echo request: %w", err)
	}

	rb := make([]byte, maxReplySize)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return 0, ErrTimeout
			}
			return 0, fmt.Errorf("failed to read echo reply: %w", err)
		}
		rtt := time.Since(start)

		if !samePeer(peer, ip) {
			continue
		}
		if p.isReply(params, rb[:n]) {
			return rtt, nil
		}
	}
}

// isReply matches our echo reply. Datagram sockets rewrite the identifier
// to the local port, so it is only checked on raw sockets.
func (p *ICMPPinger) isReply(params echoParams, data []byte) bool {
	reply, err := icmp.ParseMessage(params.protocol, data)
	if err != nil || reply.Type != params.reply {
		return false
	}

	echo, ok := reply.Body.(*icmp.Echo)
	if !ok || echo.Seq != echoSequence {
		return false
	}

	return !p.privileged || echo.ID == echoIdentifier
}

func samePeer(peer net.Addr, ip net.IP) bool {
	switch addr := peer.(type) {
	case *net.IPAddr:
		return addr.IP.Equal(ip)
	case *net.UDPAddr:
		return addr.IP.Equal(ip)
	}
	return false
}
