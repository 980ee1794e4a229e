package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/scanview/internal/monitoring"
	"github.com/banshee-data/scanview/internal/protocol"
	"github.com/banshee-data/scanview/internal/timeutil"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// PCAPConfig configures a PCAPSource.
type PCAPConfig struct {
	Path string
	// Port is the destination port of the datagrams to replay.
	Port int
	// ClientID is the node id the replay pretends to be.
	ClientID int32
	// Realtime paces delivery by capture timestamps divided by Speed.
	Realtime bool
	Speed    float64
	Clock    timeutil.Clock
}

// PCAPSource replays LidarComms datagrams from a pcap or pcapng capture.
type PCAPSource struct {
	cfg   PCAPConfig
	Stats PacketStats
}

func NewPCAPSource(cfg PCAPConfig) *PCAPSource {
	if cfg.Port == 0 {
		cfg.Port = protocol.DefaultPort
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &PCAPSource{cfg: cfg}
}

func (p *PCAPSource) Run(ctx context.Context, out chan<- protocol.Sample) error {
	f, err := os.Open(p.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", p.cfg.Path, err)
	}
	defer f.Close()
	return p.replay(ctx, f, out)
}

// openCapture sniffs the file magic and returns a packet source for either
// capture format.
func openCapture(r io.Reader) (*gopacket.PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("read pcapng header: %w", err)
		}
		return gopacket.NewPacketSource(ng, ng.LinkType()), nil
	}
	rd, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}
	return gopacket.NewPacketSource(rd, rd.LinkType()), nil
}

func (p *PCAPSource) replay(ctx context.Context, r io.Reader, out chan<- protocol.Sample) error {
	src, err := openCapture(r)
	if err != nil {
		return err
	}
	port := layers.UDPPort(p.cfg.Port)

	var prev time.Time
	count := 0
	start := p.cfg.Clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			monitoring.Logf("PCAP replay stopping due to context cancellation (processed %d packets)", count)
			return err
		}
		packet, err := src.NextPacket()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("PCAP replay complete: %d packets in %v", count, p.cfg.Clock.Since(start))
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packet %d: %w", count+1, err)
		}

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || udp.DstPort != port || len(udp.Payload) == 0 {
			continue
		}
		count++

		if p.cfg.Realtime {
			ts := packet.Metadata().Timestamp
			if !prev.IsZero() && ts.After(prev) {
				wait := time.Duration(float64(ts.Sub(prev)) / p.cfg.Speed)
				if err := p.cfg.Clock.Sleep(ctx, wait); err != nil {
					return err
				}
			}
			prev = ts
		}

		s, ok := p.Stats.handle(udp.Payload, p.cfg.ClientID)
		if !ok {
			continue
		}
		if err := emit(ctx, out, s); err != nil {
			return err
		}
	}
}
