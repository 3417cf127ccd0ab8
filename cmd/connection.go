// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/SpencerGraffunder/NuclearDash/pkg/slcan"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool // Track if connection has failed/closed
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, ErrConnectionClosed
		}

		// CAN frames travel as binary messages; anything else is gateway chatter
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens the SLCAN adapter and brings the CAN channel up
// at the requested bitrate.
func OpenSerialConnection(portName string, baudRate, bitrate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	commands, err := slcan.OpenSequence(bitrate)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	for _, c := range commands {
		if _, err := port.Write(c); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to configure adapter on %s: %w", portName, err)
		}
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("NUCLEARDASH_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

//////////////////////////////////////////////////////////////
// Frame codecs
//////////////////////////////////////////////////////////////

// frameCodec turns a transport's byte stream into CAN frames and back.
type frameCodec interface {
	Decode(data []byte) ([]haltech.Frame, error)
	Encode(f haltech.Frame) ([]byte, error)
}

// slcanCodec speaks the Lawicel ASCII protocol of USB-CAN adapters.
type slcanCodec struct {
	dec *slcan.Decoder
}

func newSLCANCodec() *slcanCodec {
	return &slcanCodec{dec: slcan.NewDecoder()}
}

func (c *slcanCodec) Decode(data []byte) ([]haltech.Frame, error) {
	return c.dec.Decode(data)
}

func (c *slcanCodec) Encode(f haltech.Frame) ([]byte, error) {
	return slcan.Encode(f)
}

// binaryCodec carries SocketCAN-layout 16-byte frames, several per message
// allowed.
type binaryCodec struct {
	buf []byte
}

func (c *binaryCodec) Decode(data []byte) ([]haltech.Frame, error) {
	c.buf = append(c.buf, data...)
	var frames []haltech.Frame
	var lastErr error
	for len(c.buf) >= haltech.BinaryFrameSize {
		var f haltech.Frame
		if err := f.UnmarshalBinary(c.buf[:haltech.BinaryFrameSize]); err != nil {
			lastErr = err
		} else {
			frames = append(frames, f)
		}
		c.buf = c.buf[haltech.BinaryFrameSize:]
	}
	if len(c.buf) == 0 {
		c.buf = nil
	}
	return frames, lastErr
}

func (c *binaryCodec) Encode(f haltech.Frame) ([]byte, error) {
	return f.MarshalBinary()
}

//////////////////////////////////////////////////////////////
// CANBus
//////////////////////////////////////////////////////////////

// Consecutive read errors after which a serial port is treated as gone.
const maxReadErrors = 50

// Received frames buffered between the reader goroutine and the engine.
const rxBufferFrames = 1024

// CANBus runs a reader goroutine over a Connection and implements dash.Bus.
type CANBus struct {
	conn  Connection
	codec frameCodec
	info  string

	frames chan haltech.Frame
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	decodeErrors atomic.Uint64
	rxOverruns   atomic.Uint64
}

func newCANBus(conn Connection, codec frameCodec, info string) *CANBus {
	b := &CANBus{
		conn:   conn,
		codec:  codec,
		info:   info,
		frames: make(chan haltech.Frame, rxBufferFrames),
		done:   make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// Frames is closed when the connection is lost or the bus is closed.
func (b *CANBus) Frames() <-chan haltech.Frame { return b.frames }

// Send encodes and writes one frame.
func (b *CANBus) Send(f haltech.Frame) error {
	data, err := b.codec.Encode(f)
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if _, err := b.conn.Write(data); err != nil {
		return fmt.Errorf("write frame 0x%03X: %w", f.ID, err)
	}
	return nil
}

// Close stops the reader and closes the connection.
func (b *CANBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}

// Info describes the connection for display.
func (b *CANBus) Info() string { return b.info }

// DecodeErrors counts malformed lines and adapter errors.
func (b *CANBus) DecodeErrors() uint64 { return b.decodeErrors.Load() }

// RxOverruns counts frames dropped because the engine fell behind.
func (b *CANBus) RxOverruns() uint64 { return b.rxOverruns.Load() }

func (b *CANBus) readLoop() {
	defer close(b.frames)

	buf := make([]byte, 256)
	failures := 0
	for {
		select {
		case <-b.done:
			return
		default:
		}

		n, err := b.conn.Read(buf)
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}
			// For WebSocket connections, a read error means the
			// connection is permanently closed
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				return
			}
			failures++
			if failures >= maxReadErrors {
				return
			}
			// Brief pause before retry on transient errors (e.g., serial)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0

		frames, decodeErr := b.codec.Decode(buf[:n])
		if decodeErr != nil {
			b.decodeErrors.Add(1)
		}
		for _, f := range frames {
			select {
			case b.frames <- f:
			default:
				b.rxOverruns.Add(1)
			}
		}
	}
}

//////////////////////////////////////////////////////////////
// Opening
//////////////////////////////////////////////////////////////

// openConnection opens either a serial or WebSocket connection based on the
// merged configuration.
func openConnection(password string) (Connection, frameCodec, string, error) {
	bus := cfg.Bus
	if bus.Port != "" {
		conn, err := OpenSerialConnection(bus.Port, bus.Baud, bus.Bitrate)
		if err != nil {
			return nil, nil, "", err
		}
		info := fmt.Sprintf("Serial: %s @ %d baud, CAN %d kbit/s", bus.Port, bus.Baud, bus.Bitrate/1000)
		return conn, newSLCANCodec(), info, nil
	}

	if bus.URL != "" {
		conn, err := OpenWebSocketConnection(bus.URL, bus.Username, password, bus.Insecure)
		if err != nil {
			return nil, nil, "", err
		}
		return conn, &binaryCodec{}, fmt.Sprintf("WebSocket: %s", bus.URL), nil
	}

	return nil, nil, "", fmt.Errorf("either --port or --url must be specified")
}

// busPassword prompts once per process for the gateway password.
var busPassword = sync.OnceValues(func() (string, error) {
	if cfg.Bus.URL == "" || cfg.Bus.Username == "" || cfg.Bus.Port != "" {
		return "", nil
	}
	return GetPassword()
})

// OpenBus opens the configured bus, retrying up to the configured number of
// bring-up attempts.
func OpenBus(ctx context.Context, logger *log.Logger) (*CANBus, error) {
	if cfg.Bus.Port == "" && cfg.Bus.URL == "" {
		return nil, fmt.Errorf("either --port or --url must be specified")
	}
	password, err := busPassword()
	if err != nil {
		return nil, err
	}

	attempts := cfg.Timing.BringupAttempts
	delay := time.Duration(cfg.Timing.BringupRetryMs) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, codec, info, err := openConnection(password)
		if err == nil {
			return newCANBus(conn, codec, info), nil
		}
		lastErr = err
		if logger != nil {
			logger.Printf("bus bring-up attempt %d/%d failed: %v", attempt, attempts, err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("bus bring-up failed after %d attempts: %w", attempts, lastErr)
}
