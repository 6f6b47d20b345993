package versions

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/segmaster/pkg/constants"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/segments"
)

// manifestFile is the on-disk layout of a release manifest.
type manifestFile struct {
	Releases []segments.VersionRecord `yaml:"releases"`
}

// Manifest keeps release records in <root>/<domain>/<data_product>/release.yaml.
type Manifest struct {
	fs   afero.Fs
	root string
}

// NewManifest creates a manifest store rooted at root on fs. A nil fs uses
// the OS filesystem.
func NewManifest(fs afero.Fs, root string) *Manifest {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manifest{fs: fs, root: root}
}

// Path returns the manifest file for key.
func (m *Manifest) Path(key Key) string {
	return filepath.Join(m.root, key.Domain, key.DataProduct, constants.DefaultManifestFile)
}

// Latest implements Store.
func (m *Manifest) Latest(_ context.Context, key Key) (*segments.VersionRecord, error) {
	manifest, err := m.read(key)
	if err != nil {
		return nil, err
	}

	var latest *segments.VersionRecord
	for i := range manifest.Releases {
		r := &manifest.Releases[i]
		if r.SegmentID != key.SegmentID {
			continue
		}
		if latest == nil || r.Version > latest.Version {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	found := *latest
	return &found, nil
}

// Record implements Store.
func (m *Manifest) Record(_ context.Context, key Key, record segments.VersionRecord) error {
	manifest, err := m.read(key)
	if err != nil {
		return err
	}
	record.SegmentID = key.SegmentID
	manifest.Releases = append(manifest.Releases, record)

	path := m.Path(key)
	if err := m.fs.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := afero.WriteFile(m.fs, path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func (m *Manifest) read(key Key) (*manifestFile, error) {
	path := m.Path(key)
	data, err := afero.ReadFile(m.fs, path)
	if os.IsNotExist(err) {
		return &manifestFile{}, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var manifest manifestFile
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &manifest, nil
}
