package fileutil

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// OS is the real filesystem
var OS = afero.NewOsFs()

// DirSize returns the total size in bytes of the regular files under root. Entries that vanish
// while walking (a writer may be deleting temporary files) are skipped; a missing root is size 0.
func DirSize(fs afero.Fs, root string) (int64, error) {
	var total int64
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Exists returns whether something exists at path on the real filesystem
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ParentExists returns whether the directory that would contain path exists
func ParentExists(path string) bool {
	info, err := os.Stat(filepath.Dir(filepath.Clean(path)))
	return err == nil && info.IsDir()
}
