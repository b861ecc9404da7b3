package urlguard

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsPlainHTTP(t *testing.T) {
	err := Validate("http://example.com/hook", nil)
	assert.ErrorIs(t, err, ErrInsecureScheme)
}

func TestValidate_RejectsLoopback(t *testing.T) {
	for _, raw := range []string{
		"https://127.0.0.1/hook",
		"https://127.0.0.1:8443/hook",
		"https://[::1]/hook",
	} {
		err := Validate(raw, nil)
		assert.ErrorIs(t, err, ErrForbiddenHost, raw)
	}
}

func TestValidate_RejectsPrivateRanges(t *testing.T) {
	for _, raw := range []string{
		"https://10.0.0.5/hook",
		"https://172.16.3.4/hook",
		"https://192.168.1.1/hook",
		"https://169.254.169.254/latest/meta-data",
		"https://0.0.0.0/hook",
	} {
		err := Validate(raw, nil)
		assert.ErrorIs(t, err, ErrForbiddenHost, raw)
	}
}

func TestValidate_AcceptsPublicIP(t *testing.T) {
	assert.NoError(t, Validate("https://8.8.8.8/hook", nil))
}

func TestValidate_Allowlist(t *testing.T) {
	allow := []string{"8.8.8.8"}

	assert.NoError(t, Validate("https://8.8.8.8/hook", allow))
	assert.ErrorIs(t, Validate("https://8.8.4.4/hook", allow), ErrHostNotAllowed)
}

func TestValidate_ResolvesHostnames(t *testing.T) {
	orig := lookupIP
	lookupIP = func(host string) ([]net.IP, error) {
		switch host {
		case "internal.corp":
			return []net.IP{net.ParseIP("10.0.0.5")}, nil
		case "api.example.com":
			return []net.IP{net.ParseIP("93.184.216.34")}, nil
		}
		return nil, &net.DNSError{Err: "no such host", Name: host}
	}
	defer func() { lookupIP = orig }()

	assert.ErrorIs(t, Validate("https://internal.corp/hook", nil), ErrForbiddenHost)
	assert.NoError(t, Validate("https://api.example.com/hook", nil))
	assert.NoError(t, Validate("https://API.Example.Com/hook", []string{"api.example.com"}))
	assert.Error(t, Validate("https://unknown.example.com/hook", nil))
}

func TestValidate_GarbageInput(t *testing.T) {
	require.Error(t, Validate("://not a url", nil))
	require.Error(t, Validate("https://", nil))
}
