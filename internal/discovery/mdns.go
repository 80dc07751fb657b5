// SPDX-License-Identifier: MIT

// Package discovery advertises the monitor endpoint on the local network
// so browsers and dashboards can find a running clapper without an address.
package discovery

import (
	"fmt"
	"net"
	"sync"

	"clapper/internal/log"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type clapper instances register under.
const ServiceType = "_clapper._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string // instance name, e.g. "clapper"
	Port        int    // HTTP port serving /ws and /metrics
	RunID       string
	Version     string
}

// Manager handles mDNS advertisement.
type Manager struct {
	config Config

	mu     sync.Mutex
	server *mdns.Server
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// TXT returns the service's TXT records.
func (m *Manager) TXT() []string {
	return []string{
		"path=/ws",
		"metrics=/metrics",
		"run=" + m.config.RunID,
		"version=" + m.config.Version,
	}
}

func (m *Manager) service(ips []net.IP) (*mdns.MDNSService, error) {
	if m.config.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", m.config.Port)
	}
	return mdns.NewMDNSService(m.config.ServiceName, ServiceType, "", "", m.config.Port, ips, m.TXT())
}

// Advertise starts answering mDNS queries until Stop.
func (m *Manager) Advertise() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return nil
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}
	if len(ips) == 0 {
		ips = []net.IP{net.IPv4(127, 0, 0, 1)}
	}

	service, err := m.service(ips)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	log.Infof("Discovery: Advertising %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)
	return nil
}

// Stop withdraws the advertisement.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown()
	m.server = nil
	return err
}

// getLocalIPs returns the IPv4 addresses of every interface that is up.
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
