package entity

// Credentials are the API key identifier and EC private key material used to sign requests.
type Credentials struct {
	KeyName    string
	PrivateKey string
}

// String never reveals the key material.
func (c Credentials) String() string {
	return "Credentials{KeyName: " + c.KeyName + ", PrivateKey: [redacted]}"
}

// GoString keeps %#v from printing the key.
func (c Credentials) GoString() string {
	return c.String()
}
