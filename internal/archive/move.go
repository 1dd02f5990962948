package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/models"
)

// Move relocates entry from SourcePath to TargetPath. Either the entry ends
// up wholly at the target or the source is left as it was.
func (e *Engine) Move(entry *models.Entry) error {
	if entry.TargetPath == "" {
		f := models.WrapFailure(models.FailureMove, ErrNoTarget)
		entry.Fail(f)
		return f
	}
	entry.State = models.StateMoving

	if err := e.move(entry.SourcePath, entry.TargetPath); err != nil {
		f := models.WrapFailure(models.FailureMove, err)
		entry.Fail(f)
		e.logger.Error("move failed",
			zap.String("name", entry.Name),
			zap.String("target", entry.TargetPath),
			zap.Error(err),
		)
		return f
	}

	entry.State = models.StateMoved
	e.logger.Info("entry moved", zap.String("name", entry.Name), zap.String("target", entry.TargetPath))
	return nil
}

func (e *Engine) move(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	err := e.rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	e.logger.Debug("cross-device move, copying", zap.String("source", src), zap.String("target", dst))
	return moveAcrossDevices(src, dst)
}

// moveAcrossDevices stages a full copy next to dst, renames it into place,
// then removes src. A failed copy leaves src untouched and no trace at dst.
func moveAcrossDevices(src, dst string) error {
	staging, err := os.MkdirTemp(filepath.Dir(dst), ".archivist-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, filepath.Base(dst))
	if err := copyTree(src, staged); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := os.Rename(staged, dst); err != nil {
		return fmt.Errorf("place copy: %w", err)
	}

	info, err := os.Lstat(src)
	if err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		if err := os.Remove(src); err != nil {
			os.RemoveAll(dst)
			return fmt.Errorf("remove source: %w", err)
		}
		return nil
	}
	// A directory may be partly removed; the complete copy at dst is kept.
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("remove source directory (copy kept at %s): %w", dst, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
			return os.Chtimes(target, info.ModTime(), info.ModTime())
		default:
			return fmt.Errorf("unsupported file type %s: %s", info.Mode().Type(), path)
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
