package build

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
)

const (
	// DefaultExecutable is where the kaniko image ships its executor.
	DefaultExecutable = "/kaniko/executor"
	// DockerfilePath is the Dockerfile location inside a bento.
	DockerfilePath = "env/docker/Dockerfile"
)

// Options tweak the kaniko invocation.
type Options struct {
	Executable string
	Cache      bool
}

// Destination is the image reference the bento is pushed to.
func Destination(handle artifacts.Handle, registry string) string {
	return fmt.Sprintf("%s/%s:%s", registry, handle.Name, handle.Version)
}

// ValidateDestination checks that dest parses as a tagged image reference.
func ValidateDestination(dest string) error {
	if _, err := name.NewTag(dest); err != nil {
		return fmt.Errorf("invalid image destination %q: %w", dest, err)
	}
	return nil
}

// ValidateRegistry checks that images can be named under registry before any
// bento is known.
func ValidateRegistry(registry string) error {
	if _, err := name.NewRepository(registry + "/bento"); err != nil {
		return fmt.Errorf("invalid registry %q: %w", registry, err)
	}
	return nil
}

// Command builds the kaniko argument vector for handle. The first element is
// the executable.
func Command(handle artifacts.Handle, registry string, opts Options) []string {
	executable := opts.Executable
	if executable == "" {
		executable = DefaultExecutable
	}

	args := []string{
		executable,
		"--dockerfile=" + handle.PathOf(DockerfilePath),
		"--context=" + handle.Path,
		"--destination=" + Destination(handle, registry),
	}
	if opts.Cache {
		args = append(args, "--cache=true")
	}
	return args
}
