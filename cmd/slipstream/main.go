package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bigbag/slipstream/internal/bench"
	"github.com/bigbag/slipstream/internal/config"
	"github.com/bigbag/slipstream/internal/link"
	"github.com/bigbag/slipstream/internal/logging"
	"github.com/bigbag/slipstream/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
	portFlag     string
	baudFlag     int
	linesFlag    bool
	hexFlag      bool
	lengthsFlag  bool
	rawFlag      bool
	replyFlag    bool
	asciiFlag    bool

	listenCount    int
	loopbackCount  int
	loopbackLength int
	benchCount     int
	benchLength    int
)

var (
	cfg config.Config
	log zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "slipstream",
		Short: "Encode, decode and exchange SLIP frames",
		Long: `Slipstream frames byte payloads with the Serial Line Internet Protocol
(RFC 1055) and moves them over files, pipes and serial ports.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error, off)")

	encodeCmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Frame input as SLIP",
		Long: `Read a file (or stdin) and write it to stdout as one SLIP frame.
With --lines every input line becomes its own frame.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEncode,
	}
	encodeCmd.Flags().BoolVarP(&linesFlag, "lines", "l", false, "One frame per input line")

	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a SLIP stream",
		Long: `Read a SLIP stream from a file (or stdin) and print each payload on its own line.
A truncated final frame is reported as a warning.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDecode,
	}
	decodeCmd.Flags().BoolVarP(&hexFlag, "hex", "x", false, "Print payloads as hex")
	decodeCmd.Flags().BoolVar(&lengthsFlag, "lengths", false, "Print payload lengths only")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Print frames received on a serial port",
		Args:  cobra.NoArgs,
		RunE:  runListen,
	}
	addPortFlags(listenCmd)
	listenCmd.Flags().IntVarP(&listenCount, "count", "n", 0, "Stop after this many frames (0 = until interrupted)")
	listenCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print payloads as quoted strings instead of hex")

	sendCmd := &cobra.Command{
		Use:   "send <payload>",
		Short: "Send one frame to a serial port",
		Args:  cobra.ExactArgs(1),
		RunE:  runSend,
	}
	addPortFlags(sendCmd)
	sendCmd.Flags().BoolVarP(&hexFlag, "hex", "x", false, "Payload is hex encoded")
	sendCmd.Flags().BoolVarP(&replyFlag, "reply", "r", false, "Wait for one reply frame")

	loopbackCmd := &cobra.Command{
		Use:   "loopback",
		Short: "Check that a peer echoes frames unchanged",
		Long: `Send generated frames to a serial port whose peer echoes them back
(or a port with TX wired to RX) and verify every reply.`,
		Args: cobra.NoArgs,
		RunE: runLoopback,
	}
	addPortFlags(loopbackCmd)
	loopbackCmd.Flags().IntVarP(&loopbackCount, "count", "n", 100, "Number of frames")
	loopbackCmd.Flags().IntVar(&loopbackLength, "length", 64, "Frame length in bytes")
	loopbackCmd.Flags().BoolVar(&asciiFlag, "ascii", false, "Use printable bytes only")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure encode and decode throughput",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntVarP(&benchCount, "count", "n", 1_000_000, "Number of frames")
	benchCmd.Flags().IntVar(&benchLength, "length", 128, "Frame length in bytes")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slipstream %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(encodeCmd, decodeCmd, listenCmd, sendCmd, loopbackCmd, benchCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPortFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (defaults to serial.port from config)")
	cmd.Flags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate (defaults to serial.baud from config)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFlag)
	if err != nil {
		return err
	}
	if logLevelFlag != "" {
		if _, ok := logging.ParseLevel(logLevelFlag); !ok {
			return errors.Errorf("unknown log level %q", logLevelFlag)
		}
		cfg.Log.Level = logLevelFlag
	}
	if portFlag != "" {
		cfg.Serial.Port = portFlag
	}
	if baudFlag != 0 {
		cfg.Serial.Baud = baudFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log = logging.NewStderr(logging.Config{Level: cfg.Log.Level})
	return nil
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to open input")
	}
	return f, nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	out := bufio.NewWriter(os.Stdout)
	n, err := encodeStream(in, out, linesFlag)
	if err != nil {
		return err
	}
	log.Debug().Int("frames", n).Msg("encoded")
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mode := printRaw
	switch {
	case lengthsFlag:
		mode = printLength
	case hexFlag:
		mode = printHex
	}

	out := bufio.NewWriter(os.Stdout)
	n, rem, err := decodeStream(ctx, in, out, mode, cfg.Reader.BufferSize)
	if errors.Is(err, context.Canceled) {
		log.Info().Int("frames", n).Msg("interrupted")
		return nil
	}
	if err != nil {
		return err
	}
	if !rem.Empty() {
		log.Warn().
			Int("bytes", rem.Len()).
			Bool("escape_pending", rem.EscapePending).
			Msg("stream ended inside a frame")
	}
	log.Debug().Int("frames", n).Msg("decoded")
	return nil
}

func openPort() (*serial.Port, error) {
	if cfg.Serial.Port == "" {
		return nil, errors.New("no serial port: pass --port or set serial.port in the config")
	}
	port, err := serial.Open(cfg.Serial.Port, serial.Config{
		BaudRate:    cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("port", port.Name()).Int("baud", port.BaudRate()).Msg("port open")
	return port, nil
}

func newLink(port *serial.Port) *link.Link {
	return link.New(port,
		link.WithTimeout(cfg.Link.Timeout),
		link.WithReadBufferSize(cfg.Reader.BufferSize),
		link.WithLogger(log),
	)
}

func runListen(cmd *cobra.Command, args []string) error {
	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := newLink(port)
	for received := 0; listenCount == 0 || received < listenCount; received++ {
		p, err := l.Receive(ctx)
		if err == io.EOF || errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			return err
		}
		if rawFlag {
			fmt.Printf("%q\n", p)
		} else {
			fmt.Printf("% X\n", p)
		}
	}
	if rem := l.TakeRemainder(); !rem.Empty() {
		log.Warn().Int("bytes", rem.Len()).Msg("discarding partial frame")
	}
	return nil
}

func parsePayload(arg string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(arg), nil
	}
	p, err := hex.DecodeString(arg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex payload")
	}
	return p, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	payload, err := parsePayload(args[0], hexFlag)
	if err != nil {
		return err
	}

	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	l := newLink(port)
	if !replyFlag {
		if err := l.Send(payload); err != nil {
			return err
		}
		return port.Drain()
	}

	reply, err := l.Exchange(context.Background(), payload)
	if err != nil {
		return err
	}
	fmt.Printf("% X\n", reply)
	return nil
}

func runLoopback(cmd *cobra.Command, args []string) error {
	kind := bench.Random
	if asciiFlag {
		kind = bench.ASCII
	}
	frames := bench.Frames(kind, loopbackCount, loopbackLength)

	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	if err := port.Flush(); err != nil {
		log.Warn().Err(err).Msg("failed to flush input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := newLink(port)
	fmt.Println("Probing peer...")
	if err := l.Probe(ctx, []byte("slipstream"), cfg.Link.Attempts); err != nil {
		return errors.Wrap(err, "peer did not echo")
	}

	bar := newBar(len(frames), "Loopback")
	err = l.Loopback(ctx, frames, func(current, total int) {
		bar.Set(current)
	})
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("\n%d frames of %d bytes (%s) echoed unchanged\n", len(frames), loopbackLength, kind)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	for _, kind := range []bench.Kind{bench.Random, bench.ASCII} {
		frames := bench.Frames(kind, benchCount, benchLength)

		bar := newBar(len(frames), "Encoding "+kind.String())
		res, err := bench.Run(frames, func(current, total int) {
			bar.Set(current)
		})
		bar.Finish()
		if err != nil {
			return err
		}
		printBench(os.Stdout, kind, res)
	}
	return nil
}

func printBench(w io.Writer, kind bench.Kind, res bench.Result) {
	encNs, decNs := res.NsPerFrame()
	fmt.Fprintf(w, "--- Benchmark: %s ---\n", kind)
	fmt.Fprintf(w, "Frames processed: %d\n", res.Frames)
	fmt.Fprintf(w, "Encoded bytes: %d\n", res.EncodedBytes)
	fmt.Fprintf(w, "Encoding took: %s (%.2f ns/frame)\n", res.EncodeElapsed, encNs)
	fmt.Fprintf(w, "Encoding throughput: %.2f MB/s\n", res.EncodeMBps())
	fmt.Fprintf(w, "Decoding took: %s (%.2f ns/frame)\n", res.DecodeElapsed, decNs)
	fmt.Fprintf(w, "Decoding throughput: %.2f MB/s\n", res.DecodeMBps())
	fmt.Fprintln(w)
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}
