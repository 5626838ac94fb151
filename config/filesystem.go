package config

import (
	"os"
)

// FileSystem is the interface to read config files
type FileSystem interface {
	ReadFile(filename string) ([]byte, error)
}

// FileSystemImpl is the implementation for config file interface
type FileSystemImpl struct {
}

// ReadFile is to read file and return its content
func (fs *FileSystemImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
