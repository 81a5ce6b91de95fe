package cvs

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

func JsonMarshal(x interface{}) []byte {
	bytes, err := json.Marshal(x)
	if err != nil {
		panic(err)
	}
	return bytes
}

func FileExists(fname string) bool {
	_, err := os.Stat(fname)
	return err == nil
}

// CopyFile copies src to dst and syncs dst before returning.
// A partially written dst is removed.
func CopyFile(src string, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(dstFile, srcFile)
	if err == nil {
		err = dstFile.Sync()
	}
	if closeErr := dstFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy and remove when src and
// dst are on different filesystems.
func MoveFile(src string, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	} else if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// Like filepath.Ext but doesn't include the ".", and lower-cased.
func Ext(fname string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fname), "."))
}
