package bento

import (
	"archive/tar"
	"bytes"
	"fmt"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name     string
	body     string
	linkname string
	dir      bool
}

func makeArchive(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		case e.linkname != "":
			hdr = &tar.Header{Name: e.name, Linkname: e.linkname, Typeflag: tar.TypeSymlink}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func bentoArchive(t *testing.T, name, version, dockerfile string) []byte {
	t.Helper()
	return makeArchive(t,
		entry{name: "bento.yaml", body: fmt.Sprintf("service: service:svc\nname: %s\nversion: %s\nbentoml_version: 1.0.10\n", name, version)},
		entry{name: "env/", dir: true},
		entry{name: "env/docker/Dockerfile", body: dockerfile},
		entry{name: "src/service.py", body: "import bentoml\n"},
	)
}
