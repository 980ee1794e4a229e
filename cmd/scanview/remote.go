package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/scanview/internal/db"
	"github.com/banshee-data/scanview/internal/monitor"
	"github.com/banshee-data/scanview/internal/serialmux"
)

func runSubcommand(name string, args []string) error {
	switch name {
	case "migrate":
		return db.RunMigrateCommand(args, *dbPath, os.Stdout)
	case "remote":
		return runRemote(context.Background(), args, os.Stdout)
	case "help":
		printUsage()
		return nil
	}
	return fmt.Errorf("unknown command %q", name)
}

// runRemote queries or drives a monitor started by another scanview process.
func runRemote(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printRemoteHelp(out)
		return fmt.Errorf("remote: missing action")
	}
	action := args[0]

	fs := flag.NewFlagSet("remote "+action, flag.ContinueOnError)
	fs.SetOutput(out)
	addr := fs.String("addr", "http://localhost:8080", "Base URL of the running monitor")
	sessionID := fs.String("session", "", "Session to list frames for (default: the running one)")
	limit := fs.Int("limit", 20, "Maximum number of frames to list")
	timeout := fs.Duration("timeout", 5*time.Second, "Request timeout")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	return remoteAction(ctx, monitor.NewClient(*addr), action, *sessionID, *limit, out)
}

func remoteAction(ctx context.Context, c *monitor.Client, action, sessionID string, limit int, out io.Writer) error {
	switch action {
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, st)
	case "points":
		pts, err := c.Points(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, pts)
	case "frames":
		recs, err := c.Frames(ctx, sessionID, limit)
		if err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Fprintf(out, "%d\t%s\t%d\t%d\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Seq, r.Points, r.Path)
		}
		return nil
	case "poll":
		return sendCommand(ctx, c, serialmux.CommandPoll, out)
	case "stop":
		return sendCommand(ctx, c, serialmux.CommandStop, out)
	case "help":
		printRemoteHelp(out)
		return nil
	}
	return fmt.Errorf("remote: unknown action %q", action)
}

func sendCommand(ctx context.Context, c *monitor.Client, command string, out io.Writer) error {
	reply, err := c.SendCommand(ctx, command)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply)
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRemoteHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: scanview remote <action> [-addr URL]

Actions:
  status   Print the session status
  points   Print the current window
  frames   List catalogued frames (-session, -limit)
  poll     Ask the rangefinder to start polling
  stop     Ask the rangefinder to stop
`)
}
