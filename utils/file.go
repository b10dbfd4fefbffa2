package utils

import "os"

// CheckFileExists returns a *FileNotFoundError if nothing exists at path. Directories count as
// missing since none of our inputs can be one.
func CheckFileExists(role, path string) error {
	if path == "" {
		return &FileNotFoundError{Role: role, Path: path}
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &FileNotFoundError{Role: role, Path: path}
	}
	return nil
}
