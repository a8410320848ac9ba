package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-battle/internal/session"
	"github.com/pixil98/go-errors"
)

const minSecretLength = 16

// SessionConfig holds the key session tokens are signed with. SecretEnv
// names an environment variable and takes precedence over Secret.
type SessionConfig struct {
	Secret    string `json:"secret,omitempty"`
	SecretEnv string `json:"secret_env,omitempty"`
	Issuer    string `json:"issuer,omitempty"`
}

func (c *SessionConfig) validate() error {
	el := errors.NewErrorList()

	secret := c.secret()
	switch {
	case secret == "" && c.SecretEnv != "":
		el.Add(fmt.Errorf("session: environment variable %s is empty", c.SecretEnv))
	case secret == "":
		el.Add(fmt.Errorf("session: secret or secret_env is required"))
	case len(secret) < minSecretLength:
		el.Add(fmt.Errorf("session: secret must be at least %d bytes", minSecretLength))
	}

	return el.Err()
}

func (c *SessionConfig) secret() string {
	if c.SecretEnv != "" {
		return os.Getenv(c.SecretEnv)
	}
	return c.Secret
}

func (c *SessionConfig) BuildVerifier() *session.Verifier {
	var opts []session.VerifierOpt
	if c.Issuer != "" {
		opts = append(opts, session.WithIssuer(c.Issuer))
	}
	return session.NewVerifier([]byte(c.secret()), opts...)
}
