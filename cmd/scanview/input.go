package main

import (
	"fmt"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/scanview/internal/config"
	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/serialmux"
	"github.com/banshee-data/scanview/internal/source"
)

const (
	sourceSerial = "serial"
	sourceUDP    = "udp"
	sourcePCAP   = "pcap"
	sourceSweep  = "sweep"
)

type inputOptions struct {
	PCAPPath  string
	Broadcast string
}

// input is a sample source plus the serial mux backing it. Sources that are
// not serial get a disabled mux so the debug routes stay mounted.
type input struct {
	kind    string
	src     source.Source
	port    string
	mux     serialmux.SerialMuxInterface
	serial  *source.SerialSource
	packets *source.PacketStats
}

func openInput(kind string, cfg *config.ScanConfig, opts inputOptions) (*input, error) {
	switch kind {
	case sourceSerial:
		path := cfg.GetSerialPort()
		if path == "" {
			ports, err := serialmux.ListPorts()
			if err != nil {
				return nil, err
			}
			if path, err = serialmux.LastPort(ports); err != nil {
				return nil, err
			}
		}
		mux, err := serialmux.NewRealSerialMux(path, serialmux.PortOptions{BaudRate: cfg.GetBaudRate()})
		if err != nil {
			return nil, err
		}
		serial := source.NewSerialSource(mux)
		return &input{kind: kind, src: serial, port: path, mux: mux, serial: serial}, nil

	case sourceUDP:
		udp := source.NewUDPSource(source.UDPConfig{
			Address:   cfg.GetUDPListen(),
			ClientID:  int32(cfg.GetClientID()),
			Broadcast: opts.Broadcast,
		})
		return &input{kind: kind, src: udp, port: cfg.GetUDPListen(), mux: serialmux.NewDisabledSerialMux(kind+" source"), packets: &udp.Stats}, nil

	case sourcePCAP:
		if opts.PCAPPath == "" {
			return nil, fmt.Errorf("-pcap is required with -source %s", sourcePCAP)
		}
		speed := cfg.GetPCAPSpeed()
		pcap := source.NewPCAPSource(source.PCAPConfig{
			Path:     opts.PCAPPath,
			ClientID: int32(cfg.GetClientID()),
			Realtime: speed > 0,
			Speed:    speed,
		})
		return &input{kind: kind, src: pcap, port: opts.PCAPPath, mux: serialmux.NewDisabledSerialMux(kind+" source"), packets: &pcap.Stats}, nil

	case sourceSweep:
		return &input{kind: kind, src: source.NewSweepGenerator(), mux: serialmux.NewDisabledSerialMux(kind+" source")}, nil
	}
	return nil, fmt.Errorf("unknown source %q", kind)
}

// lineCounts mirrors SerialSource.LineCounts.
type lineCounts struct {
	Lines     uint64 `json:"lines"`
	Malformed uint64 `json:"malformed"`
	Ignored   uint64 `json:"ignored"`
}

type sourceStats struct {
	Source  string                      `json:"source"`
	Port    string                      `json:"port,omitempty"`
	Lines   *lineCounts                 `json:"lines,omitempty"`
	Packets *source.PacketStatsSnapshot `json:"packets,omitempty"`
}

func (in *input) stats() sourceStats {
	st := sourceStats{Source: in.kind, Port: in.port}
	if in.serial != nil {
		var lc lineCounts
		lc.Lines, lc.Malformed, lc.Ignored = in.serial.LineCounts()
		st.Lines = &lc
	}
	if in.packets != nil {
		snap := in.packets.Snapshot()
		st.Packets = &snap
	}
	return st
}

// attachAdminRoutes adds the source's parse and packet counters to the debug
// page.
func (in *input) attachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleSilentFunc("source-stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, in.stats())
	})
}
