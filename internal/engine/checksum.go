package engine

import "encoding/binary"

// Checksum calculates the Internet Checksum (RFC 1071) over the byte span.
// This is used for ICMP, IP, UDP, and TCP header checksums.
// Pure function, safe for unlimited concurrent calls.
func Checksum(data []byte) uint16 {
	var sum uint32

	// Sum all 16-bit words
	for i := 0; i < len(data)-1; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}

	// Add left-over byte, if any (pad with zero)
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}

	// Fold 32-bit sum to 16 bits
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}

	// Return one's complement
	return ^uint16(sum)
}

// ValidateChecksum verifies a span that has its checksum embedded.
// Returns true if the checksum is valid (sum including checksum equals 0xFFFF).
func ValidateChecksum(data []byte) bool {
	var sum uint32

	for i := 0; i < len(data)-1; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}

	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}

	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}

	// Valid if result is 0xFFFF (all ones)
	return uint16(sum) == 0xffff
}

// transportChecksum computes the TCP/UDP checksum over the 12-byte IPv4
// pseudo-header (src, dst, zero, protocol, segment length) followed by the
// segment bytes. The pseudo-header is never transmitted.
func transportChecksum(srcIP, dstIP uint32, proto Protocol, segment []byte) uint16 {
	pseudo := make([]byte, 12, 12+len(segment))
	binary.BigEndian.PutUint32(pseudo[0:4], srcIP)
	binary.BigEndian.PutUint32(pseudo[4:8], dstIP)
	pseudo[8] = 0
	pseudo[9] = byte(proto)
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))

	return Checksum(append(pseudo, segment...))
}
