package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"linecal/internal/config"
	"linecal/internal/digest"
	"linecal/internal/ics"
	"linecal/internal/line"
	appLog "linecal/internal/log"
	"linecal/internal/model"
)

// flagConfig holds parsed CLI flag values.
type flagConfig struct {
	configPath  string
	testMessage string
	dump        bool
	daemon      bool
	now         string
	debug       bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"ics_path", conf.ICS.Path,
		"ics_url", conf.ICS.URL != "",
		"show_memo", *conf.ShowMemo,
		"show_links", *conf.ShowLinks,
		"memo_max_length", *conf.MemoMaxLength,
		"message_delay_ms", *conf.MessageDelayMs,
		"broadcast", conf.UseBroadcast,
		"daemon", flags.daemon,
	)

	ref, err := referenceInstant(flags.now)
	if err != nil {
		appLog.Error("invalid -now value", err, "value", flags.now)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	notifier := line.NewClient(conf.ChannelAccessToken, conf.To, conf.UseBroadcast)
	delay := time.Duration(*conf.MessageDelayMs) * time.Millisecond
	dispatcher := digest.NewDispatcher(notifier, delay)

	switch {
	case flags.testMessage != "":
		rep := dispatcher.Dispatch(ctx, model.Digest{Header: flags.testMessage})
		exitFor(rep)

	case flags.dump:
		if err := dumpEvents(ctx, conf, ref); err != nil {
			appLog.Error("dump failed", err)
			os.Exit(1)
		}

	case flags.daemon:
		runDaemon(ctx, conf, dispatcher)

	default:
		rep, err := runOnce(ctx, conf, dispatcher, ref)
		if err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		exitFor(rep)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.testMessage, "test", "", "Send the given message instead of reading the calendar")
	flag.BoolVar(&cfg.dump, "dump", false, "Print normalized events as CSV and exit (no send)")
	flag.BoolVar(&cfg.daemon, "daemon", false, "Stay running and send the digest on the configured cron schedule")
	flag.StringVar(&cfg.now, "now", "", "Reference instant (RFC3339) overriding the current time")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func referenceInstant(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, v)
}

// loadRawEvents acquires the calendar payload and turns it into raw
// pipeline events, recurrences expanded around the day window.
func loadRawEvents(ctx context.Context, conf *config.Config, window model.DayWindow) ([]model.RawEvent, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}

	fetcher := ics.NewFetcher(conf.CacheDir)
	body, err := fetcher.Fetch(ctx, ics.Source{Path: conf.ICS.Path, URL: conf.ICS.URL})
	if err != nil {
		return nil, err
	}

	parsed, err := ics.ParseICS(body)
	if err != nil {
		return nil, err
	}

	raw := ics.Expand(parsed, ics.ExpandConfig{
		Location: loc,
		// One day of slack on each side so events crossing midnight in
		// either direction still reach the overlap filter.
		RangeStart: window.Start.Add(-24 * time.Hour),
		RangeEnd:   window.End.Add(24 * time.Hour),
	})
	return raw, nil
}

func runOnce(ctx context.Context, conf *config.Config, dispatcher *digest.Dispatcher, ref time.Time) (digest.Report, error) {
	loc, err := conf.Location()
	if err != nil {
		return digest.Report{}, err
	}
	window := digest.WindowFor(ref, loc)

	raw, err := loadRawEvents(ctx, conf, window)
	if err != nil {
		return digest.Report{}, err
	}

	opts := digest.Options{
		ShowMemo:      *conf.ShowMemo,
		ShowLinks:     *conf.ShowLinks,
		MemoMaxLength: *conf.MemoMaxLength,
	}
	dg, _ := digest.Build(raw, window, loc, opts)

	return dispatcher.Dispatch(ctx, dg), nil
}

func runDaemon(ctx context.Context, conf *config.Config, dispatcher *digest.Dispatcher) {
	c := cron.New()
	_, err := c.AddFunc(conf.Schedule, func() {
		rep, err := runOnce(ctx, conf, dispatcher, time.Now())
		if err != nil {
			appLog.Error("scheduled run failed", err)
			return
		}
		if !rep.OK() {
			appLog.Warn("scheduled run had send failures", "failed", rep.Failed, "sent", rep.Sent)
		}
	})
	if err != nil {
		appLog.Error("invalid cron schedule", err, "schedule", conf.Schedule)
		os.Exit(1)
	}

	appLog.Info("daemon started", "schedule", conf.Schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("daemon exiting")
}

// dumpEvents prints every normalized event as CSV plus run totals,
// without sending anything.
func dumpEvents(ctx context.Context, conf *config.Config, ref time.Time) error {
	const maxDumpLines = 200

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	window := digest.WindowFor(ref, loc)

	raw, err := loadRawEvents(ctx, conf, window)
	if err != nil {
		return err
	}

	var skipped, repaired, matched int
	for i, ev := range raw {
		iv, ok := digest.Normalize(ev, loc)
		if !ok {
			skipped++
			continue
		}
		if iv.Repaired {
			repaired++
		}
		if digest.Overlaps(iv, window) {
			matched++
		}
		if i < maxDumpLines {
			fmt.Printf("%s, %s, %t, %s\n",
				iv.Start.Format(time.RFC3339),
				iv.End.Format(time.RFC3339),
				iv.AllDay,
				ev.Title,
			)
		}
	}

	fmt.Printf("totals: all=%d, skipped=%d, repaired=%d, matched=%d\n",
		len(raw), skipped, repaired, matched)
	return nil
}

func exitFor(rep digest.Report) {
	if !rep.OK() {
		os.Exit(1)
	}
	os.Exit(0)
}
