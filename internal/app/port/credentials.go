package port

import "portfolio_tracker/internal/domain/entity"

// CredentialProvider defines the interface for obtaining API credentials.
type CredentialProvider interface {
	GetCredentials() (entity.Credentials, error)
}
