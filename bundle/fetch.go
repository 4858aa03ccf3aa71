package bundle

import (
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DirCreationPerm is the permission used when creating cache directories.
const DirCreationPerm = os.FileMode(0755)

// Fetch copies the bundle at src into cacheDir and returns the cached bundle
// path. Concurrent processes fetching the same bundle coordinate through a
// lock file so the copy happens once; everyone else observes the finished
// cache entry.
//
// The bundle is staged under a temporary name and renamed into place, so a
// cache entry is either absent or complete.
func Fetch(ctx context.Context, src, cacheDir string) (string, error) {
	if _, err := os.Stat(filepath.Join(src, WeightsFile)); err != nil {
		return "", errors.Wrapf(err, "source %q is not a model bundle", src)
	}
	dest := filepath.Join(cacheDir, filepath.Base(src))
	if bundleComplete(dest) {
		return dest, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(cacheDir, DirCreationPerm); err != nil {
		return "", errors.Wrapf(err, "failed to create cache directory %q", cacheDir)
	}

	lockPath := dest + ".lock"
	var mainErr error
	errLock := execOnFileLock(lockPath, func() {
		if bundleComplete(dest) {
			// Some concurrent process already fetched the bundle.
			return
		}
		staging := dest + ".staging"
		if err := os.RemoveAll(staging); err != nil {
			mainErr = errors.Wrapf(err, "failed to clear staging directory %q", staging)
			return
		}
		if mainErr = copyDir(ctx, src, staging); mainErr != nil {
			mainErr = errors.WithMessagef(mainErr, "while copying bundle %q to %q", src, staging)
			_ = os.RemoveAll(staging)
			return
		}
		if err := os.Rename(staging, dest); err != nil {
			mainErr = errors.Wrapf(err, "failed to move staged bundle to %q", dest)
			_ = os.RemoveAll(staging)
			return
		}
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("error removing lock file %q: %v", lockPath, err)
		}
	})
	if mainErr != nil {
		return "", mainErr
	}
	if errLock != nil {
		return "", errors.WithMessagef(errLock, "while locking %q to fetch %q", lockPath, src)
	}
	return dest, nil
}

func bundleComplete(dir string) bool {
	return fileExists(filepath.Join(dir, WeightsFile))
}

// execOnFileLock opens (or creates) lockPath, locks it and executes fn. If
// the lock is held elsewhere it polls with a 1 to 2 second period until it
// acquires it.
func execOnFileLock(lockPath string, fn func()) (err error) {
	fileLock := flock.New(lockPath)
	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		time.Sleep(time.Millisecond * time.Duration(1000+rand.Intn(1000)))
	}
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Errorf("error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()

	fn()
	return
}

func copyDir(ctx context.Context, src, dest string) error {
	if err := os.MkdirAll(dest, DirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create %q", dest)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "failed to list %q", src)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyDir(ctx, srcPath, destPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, destPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", src)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %q to %q", src, dest)
	}
	return out.Close()
}
