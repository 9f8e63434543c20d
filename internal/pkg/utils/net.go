// internal/pkg/utils/net.go
package utils

import (
	"net"
)

// GetOutboundIP discovers the preferred outbound IP of this host by
// opening a UDP "connection" (no packets are sent).
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
