package helper

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIpInList(t *testing.T) {
	list := []string{"203.0.113.7", "10.1.0.0/16", " 198.51.100.20 "}

	assert.True(t, IpInList("203.0.113.7", list))
	assert.True(t, IpInList("10.1.200.3", list))
	assert.True(t, IpInList("198.51.100.20", list))

	assert.False(t, IpInList("10.2.0.1", list))
	assert.False(t, IpInList("203.0.113.8", list))
	assert.False(t, IpInList("203.0.113.7", nil))
	assert.False(t, IpInList("not-an-ip", list))
}

func TestFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	r.RemoteAddr = "203.0.113.50:33412"

	// 无代理头时回退到 RemoteAddr
	assert.Equal(t, "203.0.113.50", FromRequest(r))

	// CF-Connecting-IP 命中特殊头分支
	r.Header.Set("CF-Connecting-IP", "192.0.2.77")
	assert.Equal(t, "192.0.2.77", FromRequest(r))

	// X-Forwarded-For 优先于特殊头，取第一个公网地址
	r.Header.Set("X-Forwarded-For", "10.0.0.8, 198.51.100.9")
	assert.Equal(t, "198.51.100.9", FromRequest(r))

	// X-Client-IP 优先级最高
	r.Header.Set("X-Client-IP", "203.0.113.99")
	assert.Equal(t, "203.0.113.99", FromRequest(r))
}

func TestIp2long(t *testing.T) {
	v, err := Ip2long("192.0.2.1")
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xC0000201), v)

	_, err = Ip2long("bad")
	assert.Error(t, err)
}
