package helper

import (
	"encoding/binary"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Should use canonical format of the header key s
// https://golang.org/pkg/net/http/#CanonicalHeaderKey

// Header may return multiple IP addresses in the format: "client IP, proxy 1 IP, proxy 2 IP", so we take the the first one.
var xForwardedForHeader = http.CanonicalHeaderKey("X-Forwarded-For")
var xForwardedHeader = http.CanonicalHeaderKey("X-Forwarded")
var forwardedForHeader = http.CanonicalHeaderKey("Forwarded-For")
var forwardedHeader = http.CanonicalHeaderKey("Forwarded")

// Standard headers used by Amazon EC2, Heroku, and others
var xClientIPHeader = http.CanonicalHeaderKey("X-Client-IP")

// Nginx proxy/FastCGI
var xRealIPHeader = http.CanonicalHeaderKey("X-Real-IP")

// Cloudflare.
// CF-Connecting-IP - applied to every request to the origin.
var cfConnectingIPHeader = http.CanonicalHeaderKey("CF-Connecting-IP")

// Fastly CDN and Firebase hosting header when forwared to a cloud function
var fastlyClientIPHeader = http.CanonicalHeaderKey("Fastly-Client-Ip")

// Akamai and Cloudflare
var trueClientIPHeader = http.CanonicalHeaderKey("True-Client-Ip")

var cidrs []*net.IPNet

func Ip2long(ipAddr string) (uint32, error) {
	ip := net.ParseIP(ipAddr)
	if ip == nil {
		return 0, errors.New("wrong ipAddr format")
	}
	ip = ip.To4()
	return binary.BigEndian.Uint32(ip), nil
}

func init() {
	maxCidrBlocks := []string{
		"127.0.0.1/8",    // localhost
		"10.0.0.0/8",     // 24-bit block
		"172.16.0.0/12",  // 20-bit block
		"192.168.0.0/16", // 16-bit block
		"169.254.0.0/16", // link local address
		"::1/128",        // localhost IPv6
		"fc00::/7",       // unique local address IPv6
		"fe80::/10",      // link local address IPv6
	}

	cidrs = make([]*net.IPNet, len(maxCidrBlocks))
	for i, maxCidrBlock := range maxCidrBlocks {
		_, cidr, _ := net.ParseCIDR(maxCidrBlock)
		cidrs[i] = cidr
	}
}

// isPrivateAddress works by checking if the address is under private CIDR blocks.
// List of private CIDR blocks can be seen on :
//
// https://en.wikipedia.org/wiki/Private_network
//
// https://en.wikipedia.org/wiki/Link-local_address
func isPrivateAddress(address string) (bool, error) {
	ipAddress := net.ParseIP(address)
	if ipAddress == nil {
		return false, errors.New("address is not valid")
	}

	for i := range cidrs {
		if cidrs[i].Contains(ipAddress) {
			return true, nil
		}
	}

	return false, nil
}

// FromRequest returns client's real public IP address from http request headers.
func FromRequest(r *http.Request) string {
	// 尝试从各种头获取IP，并进行安全验证
	if ip := validateAndCleanIP(r.Header.Get(xClientIPHeader)); ip != "" {
		return ip
	}

	if xForwardedFor := r.Header.Get(xForwardedForHeader); xForwardedFor != "" {
		if requestIP, err := retrieveForwardedIP(xForwardedFor); err == nil {
			if validIP := validateAndCleanIP(requestIP); validIP != "" {
				return validIP
			}
		}
	}

	if ip, err := fromSpecialHeaders(r); err == nil {
		if validIP := validateAndCleanIP(ip); validIP != "" {
			return validIP
		}
	}

	if ip, err := fromForwardedHeaders(r); err == nil {
		if validIP := validateAndCleanIP(ip); validIP != "" {
			return validIP
		}
	}

	// 最后从RemoteAddr获取，并进行严格验证
	remoteAddr := r.RemoteAddr
	if remoteAddr != "" {
		remoteIP := remoteAddr
		if strings.ContainsRune(remoteAddr, ':') {
			remoteIP, _, _ = net.SplitHostPort(remoteAddr)
		}
		if validIP := validateAndCleanIP(remoteIP); validIP != "" {
			return validIP
		}
	}

	// 如果所有方法都失败，返回unknown而不是无效IP
	return "unknown"
}

func fromSpecialHeaders(r *http.Request) (string, error) {
	ipHeaders := [...]string{cfConnectingIPHeader, fastlyClientIPHeader, trueClientIPHeader, xRealIPHeader}
	for _, iplHeader := range ipHeaders {
		if clientIP := r.Header.Get(iplHeader); clientIP != "" {
			return clientIP, nil
		}
	}
	return "", errors.New("can't get ip from special headers")
}

func fromForwardedHeaders(r *http.Request) (string, error) {
	forwardedHeaders := [...]string{xForwardedHeader, forwardedForHeader, forwardedHeader}
	for _, fh := range forwardedHeaders {
		if forwarded := r.Header.Get(fh); forwarded != "" {
			if clientIP, err := retrieveForwardedIP(forwarded); err == nil {
				return clientIP, nil
			}
		}
	}
	return "", errors.New("can't get ip from forwarded headers")
}

func retrieveForwardedIP(forwardedHeader string) (string, error) {
	for _, address := range strings.Split(forwardedHeader, ",") {
		if len(address) > 0 {
			address = strings.TrimSpace(address)
			isPrivate, err := isPrivateAddress(address)
			switch {
			case !isPrivate && err == nil:
				return address, nil
			case isPrivate && err == nil:
				return "", errors.New("forwarded ip is private")
			default:
				return "", errors.WithStack(err)
			}
		}
	}
	return "", errors.New("empty or invalid forwarded header")
}

// IpInList 检查 IP 是否命中名单；名单项支持精确 IP 或 CIDR（如 "10.1.0.0/16"）
func IpInList(ip string, ipList []string) bool {
	parsed := net.ParseIP(ip)
	for _, v := range ipList {
		v = strings.TrimSpace(v)
		if v == ip {
			return true
		}
		if parsed != nil && strings.Contains(v, "/") {
			if _, cidr, err := net.ParseCIDR(v); err == nil && cidr.Contains(parsed) {
				return true
			}
		}
	}
	return false
}

// validateAndCleanIP 验证并清理IP地址
func validateAndCleanIP(ip string) string {
	if ip == "" {
		return ""
	}

	// 清理空白字符
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	// 验证IP格式
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ""
	}

	// 过滤无效IP (0.0.0.0, ::, 等)
	if parsedIP.IsUnspecified() {
		return ""
	}

	// 过滤回环地址 (127.0.0.1, ::1)
	if parsedIP.IsLoopback() {
		return ""
	}

	return ip
}
