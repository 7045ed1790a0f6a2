package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidAPIKey = errors.New("security: invalid api key")

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

// HostKeys verifies host API keys of the form "<host>:<secret>" against
// bcrypt hashes keyed by host id.
type HostKeys struct {
	hashes map[string]string
	hasher BcryptHasher
}

func NewHostKeys(hashes map[string]string) *HostKeys {
	copied := make(map[string]string, len(hashes))
	for host, hash := range hashes {
		copied[host] = hash
	}
	return &HostKeys{hashes: copied}
}

func (k *HostKeys) Empty() bool { return k == nil || len(k.hashes) == 0 }

// Verify returns the host id the key belongs to.
func (k *HostKeys) Verify(apiKey string) (string, error) {
	if k.Empty() {
		return "", ErrInvalidAPIKey
	}
	host, secret, ok := strings.Cut(strings.TrimSpace(apiKey), ":")
	if !ok || host == "" || secret == "" {
		return "", ErrInvalidAPIKey
	}
	hash, ok := k.hashes[host]
	if !ok {
		return "", ErrInvalidAPIKey
	}
	if err := k.hasher.Compare(hash, secret); err != nil {
		return "", ErrInvalidAPIKey
	}
	return host, nil
}
