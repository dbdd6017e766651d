package bento

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	yaml "gopkg.in/yaml.v3"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
)

const (
	manifestName = "bento.yaml"
	latestName   = "latest"
	stagingName  = ".staging"
)

// manifest is the subset of bento.yaml this tool reads.
type manifest struct {
	Service        string `yaml:"service"`
	Name           string `yaml:"name"`
	Version        string `yaml:"version"`
	BentomlVersion string `yaml:"bentoml_version"`
	CreationTime   string `yaml:"creation_time"`
}

// LocalStore is the bentoml on-disk layout: BaseDir/<name>/<version>/ holding
// bento.yaml, and BaseDir/<name>/latest naming the newest version.
type LocalStore struct {
	BaseDir string
	Logger  *slog.Logger
}

func (s *LocalStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Get resolves tag to a local bento.
func (s *LocalStore) Get(tag artifacts.Tag) (artifacts.Handle, error) {
	if s.BaseDir == "" {
		return artifacts.Handle{}, errors.New("bento store directory is not configured")
	}

	version := tag.Version
	if tag.IsLatest() {
		latest, err := s.latest(tag.Name)
		if err != nil {
			return artifacts.Handle{}, err
		}
		version = latest
	}

	dir, err := filepath.Abs(filepath.Join(s.BaseDir, tag.Name, version))
	if err != nil {
		return artifacts.Handle{}, err
	}
	m, err := readManifest(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return artifacts.Handle{}, fmt.Errorf("%w: %s:%s in %s", artifacts.ErrNotFound, tag.Name, version, s.BaseDir)
	}
	if err != nil {
		return artifacts.Handle{}, err
	}

	return artifacts.Handle{Path: dir, Name: m.Name, Version: m.Version}, nil
}

// Import unpacks archive as tag, replacing any existing copy, and marks it as
// the latest version of its name.
func (s *LocalStore) Import(tag artifacts.Tag, archive io.Reader) (artifacts.Handle, error) {
	if s.BaseDir == "" {
		return artifacts.Handle{}, errors.New("bento store directory is not configured")
	}
	if tag.IsLatest() {
		return artifacts.Handle{}, fmt.Errorf("import %s: a concrete version is required", tag)
	}

	staging := filepath.Join(s.BaseDir, stagingName, uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return artifacts.Handle{}, err
	}
	defer os.RemoveAll(staging)

	if err := extractTarGz(archive, staging); err != nil {
		return artifacts.Handle{}, err
	}

	m, err := readManifest(staging)
	if err != nil {
		return artifacts.Handle{}, fmt.Errorf("bento archive for %s has no readable %s: %w", tag, manifestName, err)
	}
	if m.Name != tag.Name || m.Version != tag.Version {
		return artifacts.Handle{}, fmt.Errorf("bento archive contains %s:%s, expected %s", m.Name, m.Version, tag)
	}

	dest := filepath.Join(s.BaseDir, tag.Name, tag.Version)
	if _, err := os.Stat(dest); err == nil {
		s.logger().Info("replacing local bento", "bento", tag.String(), "path", dest)
	}
	if err := s.Delete(tag); err != nil {
		return artifacts.Handle{}, fmt.Errorf("remove previous copy of %s: %w", tag, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return artifacts.Handle{}, err
	}
	if err := os.Rename(staging, dest); err != nil {
		return artifacts.Handle{}, fmt.Errorf("move %s into store: %w", tag, err)
	}
	if err := os.WriteFile(filepath.Join(s.BaseDir, tag.Name, latestName), []byte(tag.Version), 0o644); err != nil {
		return artifacts.Handle{}, err
	}

	return s.Get(tag)
}

// Delete removes the local copy of tag.
func (s *LocalStore) Delete(tag artifacts.Tag) error {
	if tag.IsLatest() {
		return fmt.Errorf("delete %s: a concrete version is required", tag)
	}
	return os.RemoveAll(filepath.Join(s.BaseDir, tag.Name, tag.Version))
}

func (s *LocalStore) latest(name string) (string, error) {
	buf, err := os.ReadFile(filepath.Join(s.BaseDir, name, latestName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: no local versions of %s", artifacts.ErrNotFound, name)
	}
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(buf))
	if version == "" {
		return "", fmt.Errorf("%w: empty latest marker for %s", artifacts.ErrNotFound, name)
	}
	return version, nil
}

func readManifest(dir string) (manifest, error) {
	buf, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return manifest{}, err
	}
	var m manifest
	if err := yaml.Unmarshal(buf, &m); err != nil {
		return manifest{}, fmt.Errorf("parse %s: %w", manifestName, err)
	}
	if m.Name == "" || m.Version == "" {
		return manifest{}, fmt.Errorf("%s in %s lacks name or version", manifestName, dir)
	}
	return m, nil
}
