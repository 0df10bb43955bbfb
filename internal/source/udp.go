package source

import (
	"context"
	"fmt"
	"net"
	"time"
)

// UDPTransport talks the vendor's datagram protocol: commands go to the
// command port, telemetry frames arrive on a local listen port.
type UDPTransport struct {
	cmd   *net.UDPConn
	state *net.UDPConn
}

// NewUDPTransport dials the vehicle command address and listens for
// telemetry on listenAddr (e.g. ":8890").
func NewUDPTransport(commandAddr, listenAddr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", commandAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve command addr: %w", err)
	}
	cmd, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial command port: %w", err)
	}
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		cmd.Close()
		return nil, fmt.Errorf("resolve telemetry addr: %w", err)
	}
	state, err := net.ListenUDP("udp", laddr)
	if err != nil {
		cmd.Close()
		return nil, fmt.Errorf("listen telemetry port: %w", err)
	}
	return &UDPTransport{cmd: cmd, state: state}, nil
}

// SendCommand writes one command datagram, bounded by the ctx deadline.
func (t *UDPTransport) SendCommand(ctx context.Context, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.cmd.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := t.cmd.Write(payload); err != nil {
		return err
	}
	return nil
}

// ReceiveTelemetry reads one telemetry datagram, bounded by the ctx deadline.
func (t *UDPTransport) ReceiveTelemetry(ctx context.Context) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}
	if err := t.state.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	buf := make([]byte, 2048)
	n, _, err := t.state.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Close releases both sockets.
func (t *UDPTransport) Close() error {
	err := t.cmd.Close()
	if e := t.state.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
