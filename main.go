package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sluice-net/sluice/internal/config"
	"github.com/sluice-net/sluice/internal/dialer"
	"github.com/sluice-net/sluice/internal/logging"
	"github.com/sluice-net/sluice/internal/proxy"
	"github.com/sluice-net/sluice/internal/resolver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	var (
		configPath = pflag.String("config", "", "Path to YAML config file. Flags given on the command line override file settings.")
		listen     = pflag.String("listen", defaults.Listen, "SOCKS5 listen address (e.g. 127.0.0.1:1080)")

		upstream = pflag.String("upstream", defaultUpstream(), "Upstream forwarding target URL: direct:// | socks5://[user:pass@]host:port")
		dns      = pflag.String("dns", defaults.DNS, "DNS server (host:port) for resolving request targets. Empty uses the system resolver.")

		debugListen        = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", time.Duration(defaults.DialTimeout), "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", time.Duration(defaults.NegotiationTimeout), "Timeout for protocol negotiation to set up connection")
		ioTimeout          = pflag.Duration("io-timeout", time.Duration(defaults.IOTimeout), "Absolute lifetime of an established relay. Zero disables.")
		tcpKeepAlive       = pflag.String("tcp-keepalive", defaults.TCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		logLevel           = pflag.String("log-level", defaults.Log.Level, "Log level: debug|info|warn|error")
		logFormat          = pflag.String("log-format", defaults.Log.Format, "Log format: console|json")
		verbose            = pflag.Bool("verbose", false, "Shorthand for --log-level=debug")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	cfg := defaults
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	flags := pflag.CommandLine
	if flags.Changed("listen") {
		cfg.Listen = *listen
	}
	if flags.Changed("upstream") || cfg.Upstream == "" {
		cfg.Upstream = *upstream
	}
	if flags.Changed("dns") {
		cfg.DNS = *dns
	}
	if flags.Changed("dial-timeout") {
		cfg.DialTimeout = config.Duration(*dialTimeout)
	}
	if flags.Changed("negotiation-timeout") {
		cfg.NegotiationTimeout = config.Duration(*negotiationTimeout)
	}
	if flags.Changed("io-timeout") {
		cfg.IOTimeout = config.Duration(*ioTimeout)
	}
	if flags.Changed("tcp-keepalive") {
		cfg.TCPKeepAlive = *tcpKeepAlive
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ka, err := config.ParseKeepAlive(cfg.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid tcp-keepalive: %w", err)
	}

	var res resolver.Resolver = resolver.System{}
	if cfg.DNS != "" {
		res = &resolver.DNS{Server: cfg.DNS}
	}

	dialCfg := dialer.Config{
		DialTimeout: time.Duration(cfg.DialTimeout),
		KeepAlive:   ka,
		Resolver:    res,
	}

	fwd, err := dialer.New(dialCfg, cfg.Upstream)
	if err != nil {
		return fmt.Errorf("invalid upstream: %w", err)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", *debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info("debug listening", zap.String("addr", *debugListen))
	}

	ln, err := proxy.ListenTCP(ctx, "tcp", cfg.Listen, ka)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewServer(ctx, proxy.Config{
		NegotiationTimeout: time.Duration(cfg.NegotiationTimeout),
		IOTimeout:          time.Duration(cfg.IOTimeout),
		KeepAlive:          ka,
		Dialer:             fwd,
		Logger:             log,
	})
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Info("socks5 proxy listening",
		zap.String("addr", cfg.Listen),
		zap.String("upstream", cfg.Upstream))

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "direct://"
}
