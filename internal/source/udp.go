package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/protocol"
)

const (
	udpReadTimeout = 100 * time.Millisecond
	udpBufferSize  = 512
)

// PacketStats counts datagrams seen by a network source.
type PacketStats struct {
	Packets  atomic.Uint64
	Bytes    atomic.Uint64
	Short    atomic.Uint64
	Ignored  atomic.Uint64
	Samples  atomic.Uint64
	Commands atomic.Uint64
	LastPeer atomic.Value // string
}

// PacketStatsSnapshot is a point-in-time copy of PacketStats.
type PacketStatsSnapshot struct {
	Packets  uint64 `json:"packets"`
	Bytes    uint64 `json:"bytes"`
	Short    uint64 `json:"short"`
	Ignored  uint64 `json:"ignored"`
	Samples  uint64 `json:"samples"`
	Commands uint64 `json:"commands"`
	LastPeer string `json:"last_peer,omitempty"`
}

func (p *PacketStats) Snapshot() PacketStatsSnapshot {
	peer, _ := p.LastPeer.Load().(string)
	return PacketStatsSnapshot{
		Packets:  p.Packets.Load(),
		Bytes:    p.Bytes.Load(),
		Short:    p.Short.Load(),
		Ignored:  p.Ignored.Load(),
		Samples:  p.Samples.Load(),
		Commands: p.Commands.Load(),
		LastPeer: peer,
	}
}

// handle decodes one LidarComms datagram and returns the sample it carries.
func (p *PacketStats) handle(payload []byte, clientID int32) (protocol.Sample, bool) {
	p.Packets.Add(1)
	p.Bytes.Add(uint64(len(payload)))

	msg, err := protocol.DecodeMessage(payload)
	if err != nil {
		p.Short.Add(1)
		return protocol.Sample{}, false
	}
	if !msg.AddressedTo(clientID) || msg.From == clientID {
		p.Ignored.Add(1)
		return protocol.Sample{}, false
	}
	s, ok := msg.Sample()
	if !ok {
		p.Ignored.Add(1)
		return protocol.Sample{}, false
	}
	p.Samples.Add(1)
	return s, true
}

// UDPConfig configures a UDPSource.
type UDPConfig struct {
	// Address to listen on, e.g. ":21337".
	Address string
	// ClientID is this node's LidarComms id. Messages addressed to other ids
	// are ignored.
	ClientID int32
	// Broadcast, when set, receives a hello and a poll command on start and
	// a stop command on shutdown.
	Broadcast string
	RcvBuf    int
	Factory   UDPSocketFactory
	// OnListen is called with the bound address once the socket is open.
	OnListen func(net.Addr)
}

// UDPSource listens for LidarComms poll results.
type UDPSource struct {
	cfg   UDPConfig
	Stats PacketStats
}

func NewUDPSource(cfg UDPConfig) *UDPSource {
	if cfg.Factory == nil {
		cfg.Factory = RealUDPSocketFactory{}
	}
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf(":%d", protocol.DefaultPort)
	}
	return &UDPSource{cfg: cfg}
}

func (u *UDPSource) Run(ctx context.Context, out chan<- protocol.Sample) error {
	addr, err := net.ResolveUDPAddr("udp", u.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := u.cfg.Factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if u.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(u.cfg.RcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", u.cfg.RcvBuf, err)
		}
	}
	monitoring.Logf("UDP source listening on %s as client %d", conn.LocalAddr(), u.cfg.ClientID)
	if u.cfg.OnListen != nil {
		u.cfg.OnListen(conn.LocalAddr())
	}

	var bcast *net.UDPAddr
	if u.cfg.Broadcast != "" {
		if bcast, err = net.ResolveUDPAddr("udp", u.cfg.Broadcast); err != nil {
			return fmt.Errorf("failed to resolve broadcast address: %w", err)
		}
		u.send(conn, bcast, protocol.Hello(u.cfg.ClientID))
		u.send(conn, bcast, protocol.PollCommand(u.cfg.ClientID))
		defer u.send(conn, bcast, protocol.StopCommand(u.cfg.ClientID))
	}

	buffer := make([]byte, udpBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(udpReadTimeout))
		n, peer, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			monitoring.Logf("UDP read error: %v", err)
			continue
		}
		if peer != nil {
			u.Stats.LastPeer.Store(peer.String())
		}

		s, ok := u.Stats.handle(buffer[:n], u.cfg.ClientID)
		if !ok {
			continue
		}
		if err := emit(ctx, out, s); err != nil {
			return err
		}
	}
}

func (u *UDPSource) send(conn UDPSocket, to *net.UDPAddr, msg protocol.Message) {
	if _, err := conn.WriteToUDP(protocol.EncodeMessage(msg), to); err != nil {
		monitoring.Logf("UDP send %s to %s failed: %v", msg.Descriptor, to, err)
		return
	}
	u.Stats.Commands.Add(1)
}
