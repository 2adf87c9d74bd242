package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duskwire/secchan"
	"github.com/duskwire/secchan/obs/adminhttp"
	"github.com/duskwire/secchan/obs/sessionstore"
	"github.com/duskwire/secchan/transport/tlslisten"
	"github.com/duskwire/secchan/transport/wsconn"
)

var rootCmd = &cobra.Command{
	Use:   "secchan-server",
	Short: "Accepts secure length-framed message channel connections",
	RunE:  runServer,
}

var (
	flagListen     string
	flagWebSocket  bool
	flagTLSDomain  string
	flagTLSCache   string
	flagAdminAddr  string
	flagStatsDir   string
	flagRSABits    int
	flagProtocolV3 bool
	flagCompress   string
	flagMaxPackage uint32
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagListen, "listen", ":9443", "listen address for secure channel connections")
	flags.BoolVar(&flagWebSocket, "websocket", false, "accept connections over WebSocket instead of raw TCP")
	flags.StringVar(&flagTLSDomain, "tls-domain", "", "public domain for ACME certificate provisioning (empty = self-signed)")
	flags.StringVar(&flagTLSCache, "tls-cache-dir", "secchan-acme-cache", "ACME certificate cache directory")
	flags.StringVar(&flagAdminAddr, "admin", ":9080", "admin HTTP listen address (empty disables it)")
	flags.StringVar(&flagStatsDir, "stats-dir", "secchan-stats", "pebble directory for session statistics")
	flags.IntVar(&flagRSABits, "rsa-bits", secchan.DefaultRSAKeySize, "ephemeral RSA key size used in the handshake")
	flags.BoolVar(&flagProtocolV3, "protocol-v3", false, "RSA-encrypt the handshake password instead of sending it in the clear")
	flags.StringVar(&flagCompress, "compress", "auto", "compression policy: auto, always, never")
	flags.Uint32Var(&flagMaxPackage, "max-package-size", secchan.DefaultMaxPackageSize, "maximum frame size in bytes")

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("[Server] execute root command")
	}
}

func parseCompress(s string) (secchan.Compress, error) {
	switch s {
	case "auto":
		return secchan.CompressAuto, nil
	case "always":
		return secchan.CompressAlways, nil
	case "never":
		return secchan.CompressNever, nil
	default:
		return 0, fmt.Errorf("unknown compress policy %q", s)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	compress, err := parseCompress(flagCompress)
	if err != nil {
		return err
	}

	store, err := sessionstore.Open(flagStatsDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	startTime := time.Now()
	if flagAdminAddr != "" {
		go func() {
			log.Info().Str("addr", flagAdminAddr).Msg("[Server] admin http listening")
			if err := http.ListenAndServe(flagAdminAddr, adminhttp.NewRouter(store, startTime)); err != nil {
				log.Error().Err(err).Msg("[Server] admin http error")
			}
		}()
	}

	protocolVersion := secchan.ProtocolV2
	if flagProtocolV3 {
		protocolVersion = secchan.ProtocolV3
	}

	cfg := secchan.DefaultConfig()
	cfg.Role = secchan.RoleServer
	cfg.RSAKeySize = flagRSABits
	cfg.Compress = compress
	cfg.ProtocolVersion = protocolVersion
	cfg.MaxPackageSize = flagMaxPackage

	tlsManager, err := tlslisten.NewManager(flagTLSDomain, flagTLSCache)
	if err != nil {
		return fmt.Errorf("build tls manager: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if flagWebSocket {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			conn, err := wsconn.Accept(w, r)
			if err != nil {
				log.Warn().Err(err).Msg("[Server] websocket upgrade failed")
				return
			}
			go serveConn(conn, r.RemoteAddr, cfg, store)
		})
		go func() {
			log.Info().Str("addr", flagListen).Bool("websocket", true).Msg("[Server] listening")
			if err := http.ListenAndServe(flagListen, mux); err != nil {
				log.Error().Err(err).Msg("[Server] http error")
			}
		}()
	} else {
		ln, err := tlsManager.Listen(flagListen)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		defer ln.Close()
		go acceptLoop(ln, cfg, store)
		log.Info().Str("addr", flagListen).Bool("websocket", false).Msg("[Server] listening")
	}

	<-sig
	log.Info().Msg("[Server] shutting down")
	return nil
}

func acceptLoop(ln net.Listener, cfg secchan.Config, store *sessionstore.Store) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error().Err(err).Msg("[Server] accept error")
			return
		}
		go serveConn(conn, conn.RemoteAddr().String(), cfg, store)
	}
}

// serveConn runs one secure channel session to completion: it demonstrates
// the protocol by echoing every received datagram back to the sender,
// recording byte/chunk counters in the session store as it goes.
func serveConn(conn io.ReadWriteCloser, remote string, cfg secchan.Config, store *sessionstore.Store) {
	ep, err := secchan.NewEndpoint(conn, cfg)
	if err != nil {
		log.Error().Err(err).Str("remote", remote).Msg("[Server] new endpoint")
		return
	}
	defer ep.Close()

	hook := sessionstore.NewHook(store, remote, "server")
	handshakeRecorded := false

	for {
		data, err := ep.Read()
		if err != nil {
			log.Info().Err(err).Str("remote", remote).Msg("[Server] session ended")
			return
		}
		if !handshakeRecorded {
			hook.OnHandshake()
			handshakeRecorded = true
		}
		hook.OnRead(len(data))

		if _, err := ep.Write(data); err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("[Server] echo write failed")
			return
		}
		hook.OnWrite(len(data))
	}
}
