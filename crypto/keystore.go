package crypto

import (
	"fmt"
	"sync"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

// MemoryKeyStore is an in-process KeyStore keyed by {method, keyID,
// tenantID}: a mutex-guarded map with no TTL — compiled crypto instances are
// immutable for the process lifetime, so there is nothing to expire.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]map[string]string
}

// NewMemoryKeyStore builds an empty store; call Put to register key material
// before any Method backed by it encrypts or decrypts.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: map[string]map[string]string{}}
}

func keyStoreKey(method MethodID, keyID, tenantID string) string {
	return fmt.Sprintf("%s/%s/%s", method, keyID, tenantID)
}

// Put registers {key, iv} for a tenant's AES key generation.
func (s *MemoryKeyStore) Put(method MethodID, keyID, tenantID string, params map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keyStoreKey(method, keyID, tenantID)] = params
}

func (s *MemoryKeyStore) Find(method MethodID, keyID, tenantID string) (map[string]string, *pkerr.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	params, ok := s.keys[keyStoreKey(method, keyID, tenantID)]
	if !ok {
		return nil, pkerr.Newf(pkerr.AesCrypto, "crypto.MemoryKeyStore.Find", "no key material for tenant %q key %q", tenantID, keyID)
	}
	return params, nil
}
