package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// FileStore keeps contexts in the YAML file shared with the bentoml CLI.
type FileStore struct {
	Path   string
	Logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *FileStore) Put(ctx Context) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.put(ctx) {
		s.logger().Warn("overriding existing yatai context", "context", ctx.Name, "path", s.Path)
	}
	return s.save(cfg)
}

func (s *FileStore) Get(name string) (Context, error) {
	cfg, err := s.load()
	if err != nil {
		return Context{}, err
	}
	ctx, ok := cfg.get(name)
	if !ok {
		return Context{}, fmt.Errorf("%w: %s in %s", ErrContextNotFound, name, s.Path)
	}
	return ctx, nil
}

func (s *FileStore) load() (*config, error) {
	if s.Path == "" {
		return nil, errors.New("yatai config path is not configured")
	}

	cfg := &config{CurrentContextName: DefaultContextName}
	buf, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read yatai config: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse yatai config %s: %w", s.Path, err)
	}
	if cfg.CurrentContextName == "" {
		cfg.CurrentContextName = DefaultContextName
	}
	return cfg, nil
}

// save writes cfg next to the target and renames it into place. The previous
// file is kept as .backup until the rename succeeds.
func (s *FileStore) save(cfg *config) error {
	buf, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	backup := s.Path + ".backup"
	if prev, err := os.ReadFile(s.Path); err == nil {
		if err := os.WriteFile(backup, prev, 0o600); err != nil {
			return fmt.Errorf("back up yatai config: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create yatai config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("update yatai config: %w", err)
	}

	os.Remove(backup)
	return nil
}
