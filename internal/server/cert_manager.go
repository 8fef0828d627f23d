package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/observability"
)

// Reload triggers reported in logs and metrics
const (
	reloadSourceStartup = "startup"
	reloadSourceFile    = "file"
	reloadSourceVault   = "vault"
)

// TLSSecretReader reads the KVv2 secret holding the PEM content
type TLSSecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// CertificateManager serves the current server certificate and client CA
// pool, and swaps them when the certificate files or the Vault secret change.
// A failed reload keeps the previous certificates.
type CertificateManager struct {
	mu sync.RWMutex

	tlsConfig  config.TLSConfig
	serverCert *tls.Certificate
	caCertPool *x509.CertPool
	state      *certificateState

	lastReloadTime  time.Time
	reloadCount     int64
	reloadFailures  int64
	lastReloadError string

	fileWatcher *ResourceWatcher

	vaultClient  TLSSecretReader
	secretPath   string
	pollInterval time.Duration
	lastVersion  int64
	stopChan     chan struct{}
	pollDone     chan struct{}

	om     *observability.ObservabilityManager
	logger *errors.Logger
}

// NewCertificateManager creates a manager for tlsConfig. Load must be called
// before the manager serves handshakes.
func NewCertificateManager(tlsConfig config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &CertificateManager{
		tlsConfig: tlsConfig,
		om:        om,
		logger:    logger,
	}
}

// Load reads the certificate, key and, in mutual mode, the CA bundle
func (cm *CertificateManager) Load() error {
	return cm.reload(reloadSourceStartup)
}

func (cm *CertificateManager) reload(source string) error {
	cm.mu.Lock()
	err := cm.loadLocked()
	cm.reloadCount++
	if err != nil {
		cm.reloadFailures++
		cm.lastReloadError = err.Error()
	} else {
		cm.lastReloadTime = time.Now()
		cm.lastReloadError = ""
	}
	state := cm.state
	cm.mu.Unlock()

	if cm.om != nil {
		cm.om.RecordCertificateReload(context.Background(), source, err == nil)
	}

	if err != nil {
		cm.logger.LogError(err, "Failed to load TLS certificates, keeping the current ones",
			"source", source)
		return err
	}

	if state != nil {
		cm.logger.Info("TLS certificates loaded",
			"source", source,
			"subject", state.subject,
			"not_after", state.notAfter)
	}
	return nil
}

// loadLocked replaces the certificates only when every part parsed
func (cm *CertificateManager) loadLocked() error {
	cert, err := loadCertificatePair(cm.tlsConfig)
	if err != nil {
		return err
	}

	var pool *x509.CertPool
	if cm.tlsConfig.Mode == config.TLSModeMutual {
		pool, err = loadCACertificatePool(cm.tlsConfig)
		if err != nil {
			return err
		}
	}

	state := newCertificateState(cert)
	if state == nil {
		return fmt.Errorf("failed to parse server certificate")
	}

	cm.serverCert = &cert
	cm.caCertPool = pool
	cm.state = state
	return nil
}

// GetCertificate returns the current server certificate for a handshake
func (cm *CertificateManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	return cm.serverCert, nil
}

// CACertPool returns the current client CA pool, nil outside mutual mode
func (cm *CertificateManager) CACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ServerTLSConfig builds a tls.Config that picks up reloaded certificates
// and CA bundles on every handshake
func (cm *CertificateManager) ServerTLSConfig() *tls.Config {
	base := &tls.Config{
		GetCertificate: cm.GetCertificate,
		MinVersion:     tlsVersion(cm.tlsConfig.MinVersion),
		ClientAuth:     tls.NoClientCert,
	}
	if cm.tlsConfig.Mode != config.TLSModeMutual {
		return base
	}

	base.ClientAuth = clientAuthPolicy(cm.tlsConfig.ClientAuthPolicy)
	base.ClientCAs = cm.CACertPool()
	base.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		return &tls.Config{
			GetCertificate: cm.GetCertificate,
			MinVersion:     base.MinVersion,
			ClientAuth:     base.ClientAuth,
			ClientCAs:      cm.CACertPool(),
		}, nil
	}
	return base
}

// StartFileWatcher reloads the certificates when the cert, key or CA file
// changes. Content-only configurations have nothing to watch.
func (cm *CertificateManager) StartFileWatcher(debounceDelay time.Duration) error {
	files := []string{cm.tlsConfig.CertFile, cm.tlsConfig.KeyFile}
	if cm.tlsConfig.Mode == config.TLSModeMutual {
		files = append(files, cm.tlsConfig.CAFile)
	}

	watcher := NewResourceWatcher(files, debounceDelay, func() { _ = cm.reload(reloadSourceFile) }, cm.logger)
	if len(watcher.GetWatchedFiles()) == 0 {
		cm.logger.Debug("No certificate files to watch")
		return nil
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start certificate file watcher: %w", err)
	}
	cm.fileWatcher = watcher
	return nil
}

// StartVaultWatcher polls the TLS secret and reloads when its version grows
func (cm *CertificateManager) StartVaultWatcher(client TLSSecretReader, secretPath string, pollInterval time.Duration) error {
	if client == nil {
		return fmt.Errorf("vault certificate watcher requires a vault client")
	}
	if pollInterval <= 0 {
		return fmt.Errorf("vault certificate watcher requires a positive poll interval")
	}

	cm.mu.Lock()
	if cm.stopChan != nil {
		cm.mu.Unlock()
		return fmt.Errorf("vault certificate watcher is already running")
	}
	cm.vaultClient = client
	cm.secretPath = secretPath
	cm.pollInterval = pollInterval
	stop, done := make(chan struct{}), make(chan struct{})
	cm.stopChan = stop
	cm.pollDone = done
	cm.mu.Unlock()

	// The content in use was read at startup; remember its version
	if secret, err := client.GetSecretV2(secretPath); err == nil {
		cm.mu.Lock()
		cm.lastVersion = secret.Version
		cm.mu.Unlock()
	} else {
		cm.logger.Warn("Failed to read the initial TLS secret version", "path", secretPath, "error", err)
	}

	go cm.pollLoop(pollInterval, stop, done)

	cm.logger.Info("Vault certificate watcher started",
		"secret_path", secretPath,
		"poll_interval", pollInterval)
	return nil
}

func (cm *CertificateManager) pollLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := cm.checkVault(); err != nil {
				cm.logger.LogError(err, "Failed to check Vault for certificate updates",
					"path", cm.secretPath)
			}
		case <-stop:
			return
		}
	}
}

// checkVault applies a newer secret version and reports whether a reload ran
func (cm *CertificateManager) checkVault() (bool, error) {
	secret, err := cm.vaultClient.GetSecretV2(cm.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read TLS secret: %w", err)
	}

	cm.mu.Lock()
	if secret.Version <= cm.lastVersion {
		cm.mu.Unlock()
		return false, nil
	}
	cm.lastVersion = secret.Version
	targets := []struct {
		key    string
		target *string
	}{
		{"cert", &cm.tlsConfig.CertContent},
		{"key", &cm.tlsConfig.KeyContent},
		{"ca", &cm.tlsConfig.CAContent},
	}
	for _, t := range targets {
		if content, ok := secret.Data[t.key].(string); ok && content != "" {
			*t.target = content
		}
	}
	cm.mu.Unlock()

	cm.logger.Info("TLS secret changed in Vault", "path", cm.secretPath, "version", secret.Version)
	return true, cm.reload(reloadSourceVault)
}

// Stop stops the file watcher and the Vault poller
func (cm *CertificateManager) Stop() error {
	var firstErr error
	if cm.fileWatcher != nil {
		if err := cm.fileWatcher.Stop(); err != nil {
			firstErr = err
		}
	}

	cm.mu.Lock()
	stopChan, pollDone := cm.stopChan, cm.pollDone
	cm.stopChan = nil
	cm.mu.Unlock()

	if stopChan != nil {
		close(stopChan)
		<-pollDone
	}
	return firstErr
}

// Status reports the served certificate and the reload history
func (cm *CertificateManager) Status(now time.Time) map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.state == nil {
		return map[string]any{"healthy": false, "status": "missing"}
	}

	status := cm.state.status(now)
	status["reloads"] = cm.reloadCount
	status["reload_failures"] = cm.reloadFailures
	status["last_reload"] = cm.lastReloadTime.UTC().Format(time.RFC3339)
	if cm.lastReloadError != "" {
		status["last_reload_error"] = cm.lastReloadError
	}
	if cm.fileWatcher != nil {
		status["watched_files"] = cm.fileWatcher.GetWatchedFiles()
	}
	if cm.stopChan != nil {
		status["vault_secret_version"] = cm.lastVersion
		status["vault_poll_interval"] = cm.pollInterval.String()
	}
	return status
}

// loadCertificatePair loads the server certificate from content or files
func loadCertificatePair(tlsConfig config.TLSConfig) (tls.Certificate, error) {
	if tlsConfig.CertContent != "" && tlsConfig.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(tlsConfig.CertContent), []byte(tlsConfig.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}

// loadCACertificatePool loads the CA certificate pool for client verification
func loadCACertificatePool(tlsConfig config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case tlsConfig.CAContent != "":
		caCert = []byte(tlsConfig.CAContent)
	case tlsConfig.CAFile != "":
		data, err := os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return caCertPool, nil
}
