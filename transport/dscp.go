package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// setDSCP marks outbound traffic on fd with a DiffServ code point, using
// IP_TOS for IPv4 sockets and IPV6_TCLASS for IPv6, matching how the
// kernel expects the field depending on address family.
func setDSCP(fd int, addr net.IP, dscp int) error {
	tos := dscp << 2
	if addr.To4() != nil {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos); err != nil {
			return fmt.Errorf("transport: setting IP_TOS: %w", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos); err != nil {
		return fmt.Errorf("transport: setting IPV6_TCLASS: %w", err)
	}
	return nil
}

// connFd extracts the raw file descriptor backing conn, for setsockopt
// calls the standard library does not expose directly.
func connFd(conn *net.UDPConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	if err := sc.Control(func(raw uintptr) { fd = int(raw) }); err != nil {
		return -1, err
	}
	return fd, nil
}
