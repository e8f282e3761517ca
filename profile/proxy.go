package profile

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ProxyType selects how the browser reaches the network.
type ProxyType string

const (
	ProxyDirect ProxyType = "direct"
	ProxyManual ProxyType = "manual"
	ProxyPAC    ProxyType = "pac"
	ProxySystem ProxyType = "system"
)

// Code returns the value of network.proxy.type for t.
func (t ProxyType) Code() (int64, bool) {
	switch t {
	case ProxyDirect:
		return 0, true
	case ProxyManual:
		return 1, true
	case ProxyPAC:
		return 2, true
	case ProxySystem:
		return 3, true
	}
	return 0, false
}

// ProxySettings is a proxy configuration. Which fields are read
// depends on Type: AutoConfigURL for ProxyPAC, the per-protocol
// "host[:port]" fields and NoProxiesOn for ProxyManual.
type ProxySettings struct {
	Type          ProxyType `yaml:"proxyType" json:"proxyType"`
	AutoConfigURL string    `yaml:"autoConfigUrl,omitempty" json:"autoConfigUrl,omitempty"`
	FTPProxy      string    `yaml:"ftpProxy,omitempty" json:"ftpProxy,omitempty"`
	HTTPProxy     string    `yaml:"httpProxy,omitempty" json:"httpProxy,omitempty"`
	SSLProxy      string    `yaml:"sslProxy,omitempty" json:"sslProxy,omitempty"`
	SOCKSProxy    string    `yaml:"socksProxy,omitempty" json:"socksProxy,omitempty"`
	NoProxiesOn   string    `yaml:"noProxiesOn,omitempty" json:"noProxiesOn,omitempty"`
}

type prefEntry struct {
	key   string
	value Value
}

// SetProxy translates settings into network.proxy.* preferences. The
// settings are validated completely before any preference is written.
func (p *Preferences) SetProxy(settings ProxySettings) error {
	entries, err := proxyEntries(settings)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.Set(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func proxyEntries(settings ProxySettings) ([]prefEntry, error) {
	code, ok := settings.Type.Code()
	if !ok {
		if settings.Type == "" {
			return nil, newError(ErrValidation, "set proxy", "", fmt.Errorf("missing proxy type"))
		}
		return nil, newError(ErrValidation, "set proxy", "", fmt.Errorf("unknown proxy type %q", settings.Type))
	}
	entries := []prefEntry{{PrefProxyType, Int(code)}}

	switch settings.Type {
	case ProxyPAC:
		if settings.AutoConfigURL == "" {
			return nil, newError(ErrValidation, "set proxy", "", fmt.Errorf("pac proxy requires an auto-config URL"))
		}
		entries = append(entries, prefEntry{PrefProxyAutoconfigURL, String(settings.AutoConfigURL)})

	case ProxyManual:
		for _, proto := range []struct {
			name  string
			proxy string
		}{
			{"ftp", settings.FTPProxy},
			{"http", settings.HTTPProxy},
			{"ssl", settings.SSLProxy},
			{"socks", settings.SOCKSProxy},
		} {
			if proto.proxy == "" {
				continue
			}
			host, port, hasPort, err := splitProxy(proto.proxy)
			if err != nil {
				return nil, newError(ErrValidation, "set proxy", "", fmt.Errorf("%s proxy %q: %w", proto.name, proto.proxy, err))
			}
			entries = append(entries, prefEntry{"network.proxy." + proto.name, String(host)})
			if hasPort {
				entries = append(entries, prefEntry{"network.proxy." + proto.name + "_port", Int(port)})
			}
		}
		if settings.NoProxiesOn != "" {
			entries = append(entries, prefEntry{PrefProxyNoProxiesOn, String(settings.NoProxiesOn)})
		}
	}
	return entries, nil
}

// splitProxy splits "host[:port]". IPv6 hosts are accepted bare or
// bracketed.
func splitProxy(proxy string) (host string, port int64, hasPort bool, err error) {
	proxy = strings.TrimSpace(proxy)
	h, portStr, splitErr := net.SplitHostPort(proxy)
	if splitErr != nil {
		host, ok := portlessHost(proxy)
		if !ok {
			return "", 0, false, fmt.Errorf("not of the form host[:port]")
		}
		return host, 0, false, nil
	}
	if h == "" {
		return "", 0, false, fmt.Errorf("missing host")
	}
	port, err = strconv.ParseInt(portStr, 10, 64)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, false, fmt.Errorf("invalid port %q", portStr)
	}
	return h, port, true, nil
}

// portlessHost accepts a host name without any colon, or an IPv6
// literal with or without brackets.
func portlessHost(proxy string) (string, bool) {
	if proxy == "" || (strings.ContainsAny(proxy, "/[]") && !isBracketed(proxy)) {
		return "", false
	}
	if isBracketed(proxy) {
		inner := proxy[1 : len(proxy)-1]
		if ip := net.ParseIP(inner); ip == nil || ip.To4() != nil {
			return "", false
		}
		return inner, true
	}
	if !strings.Contains(proxy, ":") {
		return proxy, true
	}
	if ip := net.ParseIP(proxy); ip != nil && ip.To4() == nil {
		return proxy, true
	}
	return "", false
}

func isBracketed(s string) bool {
	return len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']'
}
