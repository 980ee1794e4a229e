package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/scanview/internal/config"
	"github.com/banshee-data/scanview/internal/db"
	"github.com/banshee-data/scanview/internal/frames"
	"github.com/banshee-data/scanview/internal/monitor"
	"github.com/banshee-data/scanview/internal/serialmux"
	"github.com/banshee-data/scanview/internal/session"
	"github.com/banshee-data/scanview/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the JSON configuration file")
	port        = flag.String("port", "", "Serial port to use (empty picks the last port found)")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
	sourceKind  = flag.String("source", sourceSerial, "Sample source: serial, udp, pcap or sweep")
	pcapFile    = flag.String("pcap", "", "PCAP file to replay (with -source pcap)")
	broadcast   = flag.String("broadcast", "", "UDP address to send poll and stop commands to (with -source udp)")
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	dbPath      = flag.String("db", "scanview.db", "Path to the frame catalogue database")
	frameDir    = flag.String("frames", "", "Directory for saved frames (overrides frame_dir)")
	noFrames    = flag.Bool("no-frames", false, "Do not save rendered frames")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if flag.NArg() > 0 {
		if err := runSubcommand(flag.Arg(0), flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *frameDir != "" {
		cfg.FrameDir = frameDir
	}
	if *port != "" {
		cfg.SerialPort = port
	}

	in, err := openInput(*sourceKind, cfg, inputOptions{PCAPPath: *pcapFile, Broadcast: *broadcast})
	if err != nil {
		log.Fatalf("failed to open %s source: %v", *sourceKind, err)
	}
	defer in.mux.Close()

	if err := in.mux.Initialise(); err != nil {
		log.Fatalf("failed to initialise device: %v", err)
	}

	sess, err := session.New(session.Config{
		Source:              *sourceKind,
		Port:                in.port,
		MaxProjectionLength: cfg.GetMaxProjectionLength(),
		MaxPoints:           cfg.GetMaxPoints(),
		TrailWidth:          cfg.GetTrailWidth(),
	})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("session %s: %s %s, range %d, window %d",
		sess.ID(), *sourceKind, in.port, cfg.GetMaxProjectionLength(), cfg.GetMaxPoints())

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.CreateSession(context.Background(), sess.Info()); err != nil {
		log.Fatalf("failed to record session: %v", err)
	}

	var writer *frames.Writer
	if !*noFrames {
		writer, err = newFrameWriter(cfg, sess.ID(), database)
		if err != nil {
			log.Fatalf("failed to create frame writer: %v", err)
		}
		log.Printf("saving frames to %s", writer.Dir())
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := in.mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	if writer != nil {
		id, ch := sess.Frames().SubscribeEvery(cfg.GetFrameInterval())
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sess.Frames().Unsubscribe(id)
			if err := writer.Run(ctx, ch); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("frame writer stopped: %v", err)
			}
			log.Printf("frame writer terminated: %+v", writer.Stats())
		}()
	}

	// feed the session until the source is exhausted or we are told to stop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx, in.src); err != nil {
			log.Printf("source stopped: %v", err)
		}
		endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.EndSession(endCtx, sess.ID(), sess.Info().EndedAt); err != nil {
			log.Printf("failed to record session end: %v", err)
		}
		log.Printf("session routine terminated: %+v", sess.Status().Stats)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := monitor.NewServer(monitor.Config{
			Session:   sess,
			Catalogue: database,
			Writer:    writer,
			FrameDir:  cfg.GetFrameDir(),
		}).ServeMux()

		in.mux.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach database routes: %v", err)
		}
		in.attachAdminRoutes(mux)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		if err := monitor.Serve(ctx, *listen, h); err != nil {
			log.Printf("HTTP server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	sess.Close()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads the config file. The default path may be absent, in which
// case the built-in defaults are used.
func loadConfig(path string) (*config.ScanConfig, error) {
	if path == config.DefaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Printf("no config at %s, using defaults", path)
			return config.DefaultScanConfig(), nil
		}
	}
	return config.LoadScanConfig(path)
}

// newFrameWriter builds the session's frame writer. frame_interval is applied
// by the writer's subscription rather than by the writer itself.
func newFrameWriter(cfg *config.ScanConfig, sessionID string, rec frames.Recorder) (*frames.Writer, error) {
	format, err := frames.ParseFormat(cfg.GetFrameFormat())
	if err != nil {
		return nil, err
	}
	return frames.NewWriter(frames.Config{
		Dir:       cfg.GetFrameDir(),
		SessionID: sessionID,
		Format:    format,
		Retain:    cfg.GetFrameRetain(),
		Recorder:  rec,
	})
}

func printUsage() {
	fmt.Fprint(flag.CommandLine.Output(), `scanview - live polar scan renderer

Usage:
  scanview [flags]                  run a scan session and its monitor
  scanview migrate <action> [args]  manage the catalogue schema
  scanview remote <action> [flags]  talk to a running monitor

Flags:
`)
	flag.PrintDefaults()
}
