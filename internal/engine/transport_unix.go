//go:build linux || darwin || freebsd || netbsd || openbsd

package engine

import (
	"encoding/binary"
	"os"
	"sync"
	"syscall"
)

// checkRawSocketPrivilege verifies the process can open raw sockets.
func checkRawSocketPrivilege() error {
	if os.Geteuid() != 0 {
		return errorf(ErrPermissionDenied, "euid %d", os.Geteuid())
	}
	return nil
}

// openRawConn opens an AF_INET raw socket for proto with IP_HDRINCL set,
// so crafted packets go out with our header, and a receive timeout so the
// reader loop can poll for shutdown.
func openRawConn(proto Protocol) (rawConn, error) {
	var sockProto int
	switch proto {
	case ProtocolICMP:
		sockProto = syscall.IPPROTO_ICMP
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
	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_IP, syscall.IP_HDRINCL, 1); err != nil {
		syscall.Close(fd)
		return nil, mapSocketErr("IP_HDRINCL", err)
	}
	tv := syscall.NsecToTimeval(recvPollInterval.Nanoseconds())
	if err := syscall.SetsockoptTimeval(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		syscall.Close(fd)
		return nil, mapSocketErr("SO_RCVTIMEO", err)
	}

	return &unixRawConn{fd: fd}, nil
}

type unixRawConn struct {
	sendMu sync.Mutex
	fd     int
}

func (c *unixRawConn) send(pkt []byte, dstIP uint32) error {
	var addr syscall.SockaddrInet4
	binary.BigEndian.PutUint32(addr.Addr[:], dstIP)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := syscall.Sendto(c.fd, pkt, 0, &addr); err != nil {
		return mapSocketErr("sendto", err)
	}
	return nil
}

func (c *unixRawConn) recv(buf []byte) (int, error) {
	n, _, err := syscall.Recvfrom(c.fd, buf, 0)
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || err == syscall.EINTR {
			return 0, errRecvTimeout
		}
		return 0, mapSocketErr("recvfrom", err)
	}
	return n, nil
}

func (c *unixRawConn) close() error {
	return syscall.Close(c.fd)
}

func mapSocketErr(op string, err error) error {
	if err == syscall.EPERM || err == syscall.EACCES {
		return errorf(ErrPermissionDenied, "%s: %v", op, err)
	}
	return errorf(ErrSocketError, "%s: %v", op, err)
}
