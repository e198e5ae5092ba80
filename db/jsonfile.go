package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piaflabs/piaf/domain"
)

const (
	AccountsFileName = "accounts.json"
	PostsFileName    = "posts.json"
)

// jsonAccountStorage persists the account collection as a single JSON
// file. A missing or empty file loads as the empty collection.
type jsonAccountStorage struct {
	path string
}

// jsonPostStorage persists the post collection the same way.
type jsonPostStorage struct {
	path string
}

// NewJSONAccountStorage returns file-backed account storage under dataDir.
func NewJSONAccountStorage(dataDir string) AccountStorage {
	return &jsonAccountStorage{path: filepath.Join(dataDir, AccountsFileName)}
}

// NewJSONPostStorage returns file-backed post storage under dataDir.
func NewJSONPostStorage(dataDir string) PostStorage {
	return &jsonPostStorage{path: filepath.Join(dataDir, PostsFileName)}
}

func (s *jsonAccountStorage) Load() (domain.AccountCollection, error) {
	coll := domain.AccountCollection{Accounts: []domain.Account{}}
	if err := loadJSONFile(s.path, &coll); err != nil {
		return domain.AccountCollection{}, err
	}
	if coll.Accounts == nil {
		coll.Accounts = []domain.Account{}
	}
	return coll, nil
}

func (s *jsonAccountStorage) Save(coll domain.AccountCollection) error {
	return saveJSONFile(s.path, coll)
}

func (s *jsonPostStorage) Load() (domain.PostCollection, error) {
	coll := domain.PostCollection{Posts: []domain.Post{}}
	if err := loadJSONFile(s.path, &coll); err != nil {
		return domain.PostCollection{}, err
	}
	if coll.Posts == nil {
		coll.Posts = []domain.Post{}
	}
	return coll, nil
}

func (s *jsonPostStorage) Save(coll domain.PostCollection) error {
	return saveJSONFile(s.path, coll)
}

// loadJSONFile reads path into v. A file that does not exist or holds
// no bytes leaves v untouched so the caller keeps its empty collection.
func loadJSONFile(path string, v interface{}) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(buf) == 0 {
		return nil
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// saveJSONFile writes v to a temp file next to path and renames it into
// place, so a crash mid-write never leaves a truncated collection.
func saveJSONFile(path string, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
