// overlay-bridge runs the agent bridge without the desktop window.
//
// Every bridge event is written to stdout as one JSON object per line.
// Every line read from stdin is sent to the connected agent as user
// input. Useful for driving an agent from scripts and for checking that
// an agent speaks the envelope protocol before pairing it with the UI.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/xfeldman/overlay/internal/bridge"
	"github.com/xfeldman/overlay/internal/config"
	"github.com/xfeldman/overlay/internal/feed"
	"github.com/xfeldman/overlay/internal/host"
	"github.com/xfeldman/overlay/internal/registry"
	"github.com/xfeldman/overlay/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		configPath  string
		listen      string
		exclusive   bool
		sessions    int
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("overlay-bridge", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", config.DefaultPath(), "path to the YAML config file")
	flagSet.StringVar(&listen, "listen", "", "override bridge.listen_addr (host:port)")
	flagSet.BoolVar(&exclusive, "exclusive", false, "refuse a second agent while one is connected")
	flagSet.IntVar(&sessions, "sessions", 0, "print the N most recent agent sessions and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Fprintln(stdout, version.String("overlay-bridge"))
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listen != "" {
		cfg.Bridge.ListenAddr = listen
	}
	if flagSet.Changed("exclusive") {
		cfg.Bridge.Exclusive = exclusive
	}

	if sessions > 0 {
		return printSessions(cfg, sessions, stdout)
	}

	h, err := host.New(cfg, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, unsub := h.Feed.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(events, stdout)
	}()

	if err := h.Start(ctx); err != nil {
		unsub()
		<-printed
		closeHost(h)
		return err
	}

	go sendLines(ctx, stdin, h, stderr)

	<-ctx.Done()
	h.Log.Info("shutting down")
	unsub()
	<-printed
	return closeHost(h)
}

func closeHost(h *host.Host) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Close(ctx)
}

// printEvents writes each event as a JSON line until events is closed.
func printEvents(events <-chan feed.Event, w io.Writer) {
	enc := json.NewEncoder(w)
	for ev := range events {
		enc.Encode(ev)
	}
}

// sendLines forwards each non-empty stdin line to the agent. Send
// failures are reported on errw and do not stop the loop.
func sendLines(ctx context.Context, r io.Reader, h *host.Host, errw io.Writer) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if err := h.Send(line); err != nil {
			fmt.Fprintf(errw, "send: %s\n", bridge.UserMessage(err))
		}
	}
}

func printSessions(cfg *config.Config, limit int, w io.Writer) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("session registry disabled (db_path is empty)")
	}
	db, err := registry.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer db.Close()

	list, err := db.ListSessions(limit)
	if err != nil {
		return err
	}
	writeSessions(w, list)
	return nil
}

func writeSessions(w io.Writer, list []*registry.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREMOTE\tSTARTED\tDURATION\tRECV\tREJECTED\tSENT\tEND")
	for _, s := range list {
		dur, end := "-", "active"
		if !s.Active() {
			dur = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
			end = s.EndReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID, s.RemoteAddr, s.StartedAt.Local().Format(time.DateTime), dur,
			s.Received, s.Rejected, s.Sent, end)
	}
	tw.Flush()
}
