// Package filestore persists values as individual JSON files under a data
// directory. Writes go through a temp file and rename so a crash never leaves
// a half-written value behind.
package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/syntopia/go-syntopia-client/store"
)

var _ store.Store = (*FileStore)(nil)

type FileStore struct {
	dir  string
	lock sync.Mutex
}

// New creates a file-backed store rooted at dir, creating it if needed.
func New(dir string) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.New] filepath.Abs")
	}
	if err := os.MkdirAll(absDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] os.MkdirAll")
	}
	return &FileStore{dir: absDir}, nil
}

func (fs *FileStore) Save(key string, value []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	path := fs.path(key)
	tmp, err := os.CreateTemp(fs.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.Save] tmp.Write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.Save] tmp.Close")
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.Chmod")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.Rename")
	}
	return nil
}

func (fs *FileStore) Load(key string) ([]byte, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] os.ReadFile")
	}
	return data, nil
}

func (fs *FileStore) Remove(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := os.Remove(fs.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Remove] os.Remove")
	}
	return nil
}

// path maps a key to a file, flattening separators so a hostile key cannot
// escape the data directory.
func (fs *FileStore) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(fs.dir, safe+".json")
}
