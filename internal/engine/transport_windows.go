//go:build windows

package engine

import (
	"encoding/binary"
	"sync"
	"syscall"
)

const (
	IPPROTO_ICMP = 1
	IP_HDRINCL   = 2
)

var wsaOnce sync.Once

// initWinsock runs WSAStartup once. The net package does this for its own
// sockets, but raw syscall sockets need it explicitly.
func initWinsock() {
	wsaOnce.Do(func() {
		var d syscall.WSAData
		syscall.WSAStartup(uint32(0x202), &d)
	})
}

// checkRawSocketPrivilege is a no-op on Windows; there is no cheap
// equivalent of an euid check, so privilege failures surface as
// WSAEACCES from socket creation.
func checkRawSocketPrivilege() error {
	return nil
}

func openRawConn(proto Protocol) (rawConn, error) {
	initWinsock()

	var sockProto int
	switch proto {
	case ProtocolICMP:
		sockProto = IPPROTO_ICMP
	case ProtocolTCP:
		sockProto = syscall.IPPROTO_TCP
	case ProtocolUDP:
		sockProto = syscall.IPPROTO_UDP
	default:
		return nil, errorf(ErrInvalidParameter, "no raw socket for protocol %d", proto)
	}

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_RAW, sockProto)
	if err != nil {
		return nil, mapSocketErr("socket", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_IP, IP_HDRINCL, 1); err != nil {
		syscall.Closesocket(fd)
		return nil, mapSocketErr("IP_HDRINCL", err)
	}
	// SO_RCVTIMEO takes milliseconds on Windows.
	ms := int(recvPollInterval.Milliseconds())
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, ms); err != nil {
		syscall.Closesocket(fd)
		return nil, mapSocketErr("SO_RCVTIMEO", err)
	}

	return &windowsRawConn{fd: fd}, nil
}

type windowsRawConn struct {
	sendMu sync.Mutex
	fd     syscall.Handle
}

func (c *windowsRawConn) send(pkt []byte, dstIP uint32) error {
	var addr syscall.SockaddrInet4
	binary.BigEndian.PutUint32(addr.Addr[:], dstIP)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := syscall.Sendto(c.fd, pkt, 0, &addr); err != nil {
		return mapSocketErr("sendto", err)
	}
	return nil
}

func (c *windowsRawConn) recv(buf []byte) (int, error) {
	n, _, err := syscall.Recvfrom(c.fd, buf, 0)
	if err != nil {
		if err == syscall.WSAETIMEDOUT {
			return 0, errRecvTimeout
		}
		return 0, mapSocketErr("recvfrom", err)
	}
	return n, nil
}

func (c *windowsRawConn) close() error {
	return syscall.Closesocket(c.fd)
}

func mapSocketErr(op string, err error) error {
	if err == syscall.WSAEACCES {
		return errorf(ErrPermissionDenied, "%s: %v", op, err)
	}
	return errorf(ErrSocketError, "%s: %v", op, err)
}
