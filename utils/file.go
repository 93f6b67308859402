package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ResolveFile returns the path of the given file relative to the root
// of the codebase. For example, if this file currently
// lives in utils/file.go and ./foo/bar/baz is given, then the result
// is foo/bar/baz.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, thisFilePath, _, _ := runtime.Caller(0)
	thisDirPath, err := filepath.Abs(filepath.Dir(thisFilePath))
	if err != nil {
		panic(err)
	}
	return filepath.Join(thisDirPath, "..", fn)
}

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// ErrFileEmpty is returned by CheckFileReadable for a file that exists but holds no bytes.
var ErrFileEmpty = errors.New("file is empty")

// CheckFileReadable returns os.ErrNotExist (wrapped) for a missing path, ErrFileEmpty for an empty
// regular file and an error for directories.
func CheckFileReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %q", path)
	}
	if info.IsDir() {
		return errors.Errorf("%q is a directory", path)
	}
	if info.Size() == 0 {
		return errors.Wrapf(ErrFileEmpty, "%q", path)
	}
	return nil
}
