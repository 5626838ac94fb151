package ipreputation

import (
	"fmt"
	"os"
	"path/filepath"
)

type fileSystem interface {
	writeFile(string, []byte) error
	readFile(string) ([]byte, error)
}

// FileSystemImpl is the implementation for file system interface. Snapshots live in DataDir.
type FileSystemImpl struct {
	DataDir string
}

// NewFileSystem makes sure dataDir exists and is writable.
func NewFileSystem(dataDir string) (fs *FileSystemImpl, err error) {
	if err = os.MkdirAll(dataDir, 0755); err != nil {
		err = fmt.Errorf("data directory %v is not usable: %w", dataDir, err)
		return
	}

	f, err := os.CreateTemp(dataDir, ".writable-*")
	if err != nil {
		err = fmt.Errorf("data directory %v is not writable: %w", dataDir, err)
		return
	}
	f.Close()
	os.Remove(f.Name())

	fs = &FileSystemImpl{DataDir: dataDir}
	return
}

// writeFile replaces the file in one step so that readers never see a partial snapshot.
func (fs *FileSystemImpl) writeFile(fileName string, data []byte) error {
	tmp, err := os.CreateTemp(fs.DataDir, fileName+".tmp-*")
	if err != nil {
		return err
	}

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(fs.DataDir, fileName))
}

func (fs *FileSystemImpl) readFile(fileName string) (data []byte, err error) {
	return os.ReadFile(filepath.Join(fs.DataDir, fileName))
}
