package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// extractZip unpacks a zip archive entry by entry, preserving directory
// structure and, on Unix, the stored permission bits.
func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := securePath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}

		mode := f.Mode().Perm()
		if runtime.GOOS == "windows" || mode == 0 {
			mode = 0o644
		}
		if err := writeZipEntry(f, target, mode); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string, mode os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return out.Close()
}

// extractGzip decompresses a gzip archive into dest. If the decompressed
// payload is itself a tar archive it is unpacked in place and the
// intermediate file removed.
func extractGzip(archive, dest string) error {
	in, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	intermediate := filepath.Join(dest, gzipPayloadName(archive))
	out, err := os.OpenFile(intermediate, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", intermediate, err)
	}
	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(intermediate)
		return fmt.Errorf("decompress to %s: %w", intermediate, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", intermediate, err)
	}

	isTar, err := looksLikeTar(intermediate)
	if err != nil {
		return err
	}
	if !isTar {
		return nil
	}

	if err := extractTarFile(intermediate, dest); err != nil {
		return err
	}
	if err := os.Remove(intermediate); err != nil {
		return fmt.Errorf("remove intermediate tar %s: %w", intermediate, err)
	}
	return nil
}

// gzipPayloadName derives the decompressed filename: "tool.tar.gz" yields
// "tool.tar", "tool.tgz" yields "tool.tar", a bare "tool.gz" yields "tool".
func gzipPayloadName(archive string) string {
	base := filepath.Base(archive)
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, ".tgz"):
		return base[:len(base)-len(".tgz")] + ".tar"
	case strings.HasSuffix(lower, ".gz"):
		return base[:len(base)-len(".gz")]
	default:
		return base + ".out"
	}
}

// looksLikeTar reports whether the file parses as a tar archive by reading
// its first header.
func looksLikeTar(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, err = tar.NewReader(f).Next()
	if err != nil {
		return false, nil
	}
	return true, nil
}

// extractTarFile unpacks a tar archive to dest, preserving directory
// structure, file modes, and symlinks.
func extractTarFile(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return extractTar(f, dest)
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := securePath(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}

		case tar.TypeSymlink:
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip char/block devices, fifos, and other exotica.
			continue
		}
	}
}

// securePath joins name under dest and rejects path traversal.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal entry path: %s", name)
	}
	return target, nil
}
