// Package yamlfile 將 session 鍵值保存在本機 YAML 檔，供 CLI 跨次執行沿用登入狀態。
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"storefront-client/internal/domain/session"
)

const fileMode = 0o600

type document struct {
	Namespaces map[string]map[string]string `yaml:"namespaces"`
}

// Storage 以檔案實作 session.Storage。每次寫入都先寫暫存檔再 rename。
type Storage struct {
	mu        sync.Mutex
	path      string
	namespace string
}

// New 建立檔案儲存體；檔案與目錄在第一次寫入時建立。
func New(path, namespace string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("yamlfile: path is required")
	}
	if namespace == "" {
		namespace = "default"
	}
	return &Storage{path: path, namespace: namespace}, nil
}

func (s *Storage) Path() string { return s.path }

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := doc.Namespaces[s.namespace][key]
	if !ok {
		return "", session.ErrKeyNotFound
	}
	return v, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	return s.update(func(ns map[string]string) { ns[key] = value })
}

func (s *Storage) Remove(_ context.Context, key string) error {
	return s.update(func(ns map[string]string) { delete(ns, key) })
}

func (s *Storage) Clear(_ context.Context) error {
	return s.update(func(ns map[string]string) {
		for k := range ns {
			delete(ns, k)
		}
	})
}

func (s *Storage) update(fn func(ns map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	ns := doc.Namespaces[s.namespace]
	if ns == nil {
		ns = make(map[string]string)
		doc.Namespaces[s.namespace] = ns
	}
	fn(ns)
	if len(ns) == 0 {
		delete(doc.Namespaces, s.namespace)
	}
	return s.save(doc)
}

func (s *Storage) load() (document, error) {
	doc := document{Namespaces: map[string]map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.Namespaces == nil {
		doc.Namespaces = map[string]map[string]string{}
	}
	return doc, nil
}

func (s *Storage) save(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
