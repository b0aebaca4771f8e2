package validators

import (
	"net"
	"os"
	"regexp"
	"strconv"
)

var hostnameRegex = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z]|[A-Za-z][A-Za-z0-9\-]*[A-Za-z0-9])$`)

func ValidateAddr(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	return ValidateHost(host) && ValidatePort(port)
}

func ValidateHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	return hostnameRegex.MatchString(host)
}

func ValidatePort(port any) bool {
	switch port := port.(type) {
	case string:
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return false
		}
		return portInt >= 1 && portInt <= 65535
	case int:
		return port >= 1 && port <= 65535
	default:
		return false
	}
}

func ValidateFileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func ValidateDirectoryExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
