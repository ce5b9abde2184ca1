// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package receiver

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"go.bug.st/serial"
)

// DefaultPort is the receiver's IP control TCP port.
const DefaultPort = 50000

// Conn is a byte stream to a receiver: a TCP socket, a serial port or a
// WebSocket bridge.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// DialTCP connects to the receiver's control port. addr may omit the port,
// in which case DefaultPort is used.
func DialTCP(ctx context.Context, addr string) (Conn, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}
	return conn, nil
}

// OpenSerial opens a serial port, for receivers reached through an RS-232 to
// IP bridge or a USB adapter wired to the control port. The port is used as
// the Conn directly.
func OpenSerial(portName string, baudRate int) (Conn, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}
