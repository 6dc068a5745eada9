package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "mdtrans"

const (
	ServiceDeepLX = "deeplx"
	ServiceGemini = "gemini"
)

// Source names where a credential came from.
const (
	SourceKeychain = "Keychain"
	SourceEnv      = "Environment Variable"
)

type credential struct {
	account string
	envVar  string
	label   string
}

var credentials = map[string]credential{
	ServiceDeepLX: {account: "deeplx-token", envVar: "MDTRANS_DEEPLX_TOKEN", label: "DeepLX access token"},
	ServiceGemini: {account: "gemini-api-key", envVar: "GEMINI_API_KEY", label: "Gemini API key"},
}

// Swapped in tests.
var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
	readPassword  = term.ReadPassword
)

func lookup(service string) (credential, error) {
	c, ok := credentials[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return credential{}, fmt.Errorf("unknown service %q (expected %s or %s)", service, ServiceDeepLX, ServiceGemini)
	}
	return c, nil
}

// Services lists the known credential services.
func Services() []string {
	return []string{ServiceDeepLX, ServiceGemini}
}

// Label returns a human-readable name for the service credential.
func Label(service string) string {
	c, err := lookup(service)
	if err != nil {
		return service
	}
	return c.label
}

// EnvVar returns the environment variable consulted for service.
func EnvVar(service string) string {
	c, err := lookup(service)
	if err != nil {
		return ""
	}
	return c.envVar
}

// GetKey retrieves the credential for service, keychain first.
// If allowEnv is false, environment variables are ignored.
func GetKey(service string, allowEnv bool) (string, string) {
	c, err := lookup(service)
	if err != nil {
		return "", ""
	}

	key, err := keyringGet(serviceName, c.account)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}

	if allowEnv {
		if key, ok := GetEnvKey(service); ok {
			return key, SourceEnv
		}
	}
	return "", ""
}

// SaveKey saves the key for a specific service to the OS Keychain.
func SaveKey(service, key string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s is empty", c.label)
	}
	return keyringSet(serviceName, c.account, key)
}

// DeleteKey removes the key for a specific service from the OS Keychain.
func DeleteKey(service string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	return keyringDelete(serviceName, c.account)
}

// GetStatus returns whether a key exists for a specific service in the keychain.
func GetStatus(service string) bool {
	c, err := lookup(service)
	if err != nil {
		return false
	}
	key, err := keyringGet(serviceName, c.account)
	return err == nil && strings.TrimSpace(key) != ""
}

// PromptForAPIKey reads a secret from the terminal without echo.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := readPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(string(bytePassword)), nil
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	c, err := lookup(service)
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(os.Getenv(c.envVar))
	if key == "" {
		return "", false
	}
	return key, true
}
