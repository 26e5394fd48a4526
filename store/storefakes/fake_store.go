package storefakes

import (
	"sync"

	"github.com/syntopia/go-syntopia-client/store"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store for tests.
type FakeStore struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string][]byte)}
}

func (fs *FakeStore) Save(key string, value []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	fs.values[key] = cp
	return nil
}

func (fs *FakeStore) Load(key string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	value, ok := fs.values[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return value, nil
}

func (fs *FakeStore) Remove(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.values, key)
	return nil
}

// Len reports the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.values)
}
