package main

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duskwire/secchan"
	"github.com/duskwire/secchan/transport/wsconn"
)

var rootCmd = &cobra.Command{
	Use:   "secchan-client",
	Short: "Connects to a secure channel server and exchanges line-delimited messages",
	RunE:  runClient,
}

var (
	flagServer     string
	flagWebSocket  bool
	flagInsecure   bool
	flagRSABits    int
	flagProtocolV3 bool
	flagCompress   string
	flagMaxPackage uint32
	flagSendFile   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", "localhost:9443", "server address (host:port, or ws(s):// URL with --websocket)")
	flags.BoolVar(&flagWebSocket, "websocket", false, "connect over WebSocket instead of raw TCP+TLS")
	flags.BoolVar(&flagInsecure, "insecure-skip-verify", true, "skip TLS certificate verification (default on: server cert is usually self-signed)")
	flags.IntVar(&flagRSABits, "rsa-bits", secchan.DefaultRSAKeySize, "ephemeral RSA key size used in the handshake")
	flags.BoolVar(&flagProtocolV3, "protocol-v3", false, "RSA-encrypt the handshake password instead of sending it in the clear")
	flags.StringVar(&flagCompress, "compress", "auto", "compression policy: auto, always, never")
	flags.Uint32Var(&flagMaxPackage, "max-package-size", secchan.DefaultMaxPackageSize, "maximum frame size in bytes")
	flags.StringVar(&flagSendFile, "send-file", "", "stream this file to the server via WriteStream instead of the interactive prompt")

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("[Client] execute root command")
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

func runClient(cmd *cobra.Command, args []string) error {
	compress, err := parseCompress(flagCompress)
	if err != nil {
		return err
	}

	protocolVersion := secchan.ProtocolV2
	if flagProtocolV3 {
		protocolVersion = secchan.ProtocolV3
	}

	cfg := secchan.DefaultConfig()
	cfg.Role = secchan.RoleClient
	cfg.RSAKeySize = flagRSABits
	cfg.Compress = compress
	cfg.ProtocolVersion = protocolVersion
	cfg.MaxPackageSize = flagMaxPackage

	conn, err := dial()
	if err != nil {
		return fmt.Errorf("dial %s: %w", flagServer, err)
	}

	ep, err := secchan.NewEndpoint(conn, cfg)
	if err != nil {
		return fmt.Errorf("new endpoint: %w", err)
	}
	defer ep.Close()

	if flagSendFile != "" {
		return sendFile(ep, flagSendFile)
	}
	return interactive(ep)
}

func dial() (io.ReadWriteCloser, error) {
	if flagWebSocket {
		u, err := url.Parse(flagServer)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		return wsconn.Dial(u.String(), nil)
	}
	return tls.Dial("tcp", flagServer, &tls.Config{InsecureSkipVerify: flagInsecure}) //nolint:gosec // self-signed dev certs are the common case
}

func sendFile(ep *secchan.Endpoint, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	n, err := ep.WriteStream(f, 0, secchan.DefaultReadBufferSize)
	if err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	log.Info().Int64("bytes", n).Dur("elapsed", time.Since(start)).Msg("[Client] file sent")
	return nil
}

// interactive reads newline-delimited messages from stdin, sends each as a
// datagram, and prints the server's echoed reply.
func interactive(ep *secchan.Endpoint) error {
	log.Info().Msg("[Client] connected; type a line and press enter to send")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := ep.WriteString(line); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		reply, err := ep.ReadString()
		if err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}
