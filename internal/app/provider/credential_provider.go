package provider

import (
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/credentialloader"
)

type credentialProviderImpl struct {
	envFile string
	keyFile string
	logger  port.Logger

	mu     sync.Mutex
	cached *entity.Credentials
}

// NewCredentialProvider creates a CredentialProvider reading from envFile, keyFile and the environment.
func NewCredentialProvider(envFile, keyFile string, logger port.Logger) port.CredentialProvider {
	return &credentialProviderImpl{envFile: envFile, keyFile: keyFile, logger: logger}
}

// GetCredentials loads credentials once and caches them for the life of the process.
func (p *credentialProviderImpl) GetCredentials() (entity.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	p.logger.Debug("Loading API credentials", "env_file", p.envFile, "key_file_set", p.keyFile != "")
	creds, err := credentialloader.LoadCredentials(p.envFile, p.keyFile)
	if err != nil {
		p.logger.Error("Failed to load API credentials", "error", err)
		return entity.Credentials{}, err
	}

	p.cached = &creds
	p.logger.Info("API credentials loaded", "key_name", creds.KeyName)
	return creds, nil
}
