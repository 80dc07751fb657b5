// SPDX-License-Identifier: MIT
package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService(t *testing.T) {
	m := NewManager(Config{ServiceName: "kitchen", Port: 8080, RunID: "abc", Version: "v1.2.3"})

	svc, err := m.service([]net.IP{net.IPv4(192, 168, 1, 20)})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", svc.Instance)
	assert.Equal(t, ServiceType, svc.Service)
	assert.Equal(t, 8080, svc.Port)
	assert.Equal(t, []string{"path=/ws", "metrics=/metrics", "run=abc", "version=v1.2.3"}, svc.TXT)
}

func TestServiceRejectsBadPort(t *testing.T) {
	m := NewManager(Config{ServiceName: "kitchen"})
	_, err := m.service([]net.IP{net.IPv4(127, 0, 0, 1)})
	assert.ErrorContains(t, err, "invalid port")
	assert.Error(t, m.Advertise())
}

func TestStopWithoutAdvertise(t *testing.T) {
	m := NewManager(Config{ServiceName: "kitchen", Port: 8080})
	assert.NoError(t, m.Stop())
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	require.NoError(t, err)
	for _, ip := range ips {
		assert.NotNil(t, ip.To4())
		assert.False(t, ip.IsLoopback())
	}
}
