package config

import "fmt"

// TLS modes
const (
	TLSModeDisabled = "disabled"
	TLSModeServer   = "server"
	TLSModeMutual   = "mutual"
)

// pemSource is one PEM input that may come from a file or inline content
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) present() bool {
	return p.file != "" || p.content != ""
}

func (p pemSource) ambiguous() bool {
	return p.file != "" && p.content != ""
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	cert := pemSource{name: "cert", file: tls.CertFile, content: tls.CertContent}
	key := pemSource{name: "key", file: tls.KeyFile, content: tls.KeyContent}
	ca := pemSource{name: "ca", file: tls.CAFile, content: tls.CAContent}

	var required []pemSource
	switch tls.Mode {
	case TLSModeDisabled:
		return nil
	case TLSModeServer:
		required = []pemSource{cert, key}
	case TLSModeMutual:
		required = []pemSource{cert, key, ca}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if !cert.present() || !key.present() {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", tls.Mode)
	}
	if tls.Mode == TLSModeMutual && !ca.present() {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	for _, source := range required {
		if source.ambiguous() {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", source.name, source.name)
		}
	}

	if tls.Mode == TLSModeMutual {
		switch tls.ClientAuthPolicy {
		case "require", "request", "verify", "":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
		}
	}

	switch tls.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}

	return c.validateAutoReload()
}

// validateAutoReload checks the certificate rotation settings
func (c *Config) validateAutoReload() error {
	reload := c.Server.TLS.AutoReload
	if !reload.Enabled || !reload.VaultWatcher.Enabled {
		return nil
	}
	if !c.Vault.Enabled || c.Vault.Secrets.TLSCerts == "" {
		return fmt.Errorf("vault certificate watching requires vault.enabled and vault.secrets.tlsCerts")
	}
	if reload.VaultWatcher.PollInterval <= 0 {
		return fmt.Errorf("vault watcher pollInterval must be positive")
	}
	return nil
}
