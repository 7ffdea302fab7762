package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-i2p/linksgo/config"
	linkserver "github.com/go-i2p/linksgo/server"
	"github.com/go-i2p/onramp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated reports from a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(c); err != nil {
			return errors.Errorf("reading config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, c.ReportDir, c.StatsFile, c.Host, c.Port, c.I2P, c.SamAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	d := config.Default()

	serveCmd.Flags().String("reportdir", d.ReportDir, "directory to serve reports from")
	serveCmd.Flags().String("statsfile", d.StatsFile, "file holding link counts per locale")
	serveCmd.Flags().String("host", d.Host, "host to serve reports on")
	serveCmd.Flags().String("port", d.Port, "port to serve reports on")
	serveCmd.Flags().Bool("i2p", false, "serve reports directly to I2P using SAMv3")
	serveCmd.Flags().String("samaddr", onramp.SAM_ADDR, "advanced: SAMv3 gateway address when --i2p is enabled")
}

func runServe(ctx context.Context, reportDir, statsFile, host, port string, i2p bool, samAddr string) error {
	logger := zerolog.Ctx(ctx)
	s := linkserver.Serve(ctx, reportDir, statsFile)

	// Probe for a SAM gateway only when serving and --i2p was not given.
	if !i2p {
		i2p = isSamAround()
	}
	if noListenerConfigured(host, i2p) {
		return errors.New("no listener configured: --host is empty and --i2p is false")
	}

	errCh := make(chan error, 2)
	if host != "" {
		go func() {
			errCh <- serveHTTP(ctx, s, host, port)
		}()
		logger.Info().Str("addr", net.JoinHostPort(host, port)).Str("dir", reportDir).Msg("serving reports")
	}
	if i2p {
		go func() {
			errCh <- serveI2P(ctx, s, samAddr)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Errorf("serve: %w", err)
	}
	return nil
}

// isSamAround reports whether something listens on the default SAMv3 port.
func isSamAround() bool {
	ln, err := net.Listen("tcp", "127.0.0.1:7656")
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// noListenerConfigured reports whether serve would start with no listener.
func noListenerConfigured(host string, i2p bool) bool {
	return host == "" && !i2p
}

// serveOn runs h on ln until ctx is cancelled.
func serveOn(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()
	return srv.Serve(ln)
}

func serveHTTP(ctx context.Context, s *linkserver.ReportServer, host, port string) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return serveOn(ctx, ln, s)
}

// serveI2P serves s on a garlic listener. An empty samAddr uses the onramp
// default.
func serveI2P(ctx context.Context, s *linkserver.ReportServer, samAddr string) error {
	var (
		garlic *onramp.Garlic
		err    error
	)
	if samAddr != "" {
		garlic, err = onramp.NewGarlic("linksgo", samAddr, onramp.OPT_DEFAULTS)
		if err != nil {
			return err
		}
	} else {
		garlic = &onramp.Garlic{}
	}
	defer garlic.Close()
	ln, err := garlic.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()
	zerolog.Ctx(ctx).Info().Str("addr", ln.Addr().String()).Msg("serving reports over I2P")
	return serveOn(ctx, ln, s)
}
