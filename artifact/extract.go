package artifact

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/aexvir/tap"
)

var (
	// ErrBinaryNotFound is returned when the archive doesn't carry the requested binary.
	ErrBinaryNotFound = errors.New("binary not found in archive")
	// ErrUnsupportedArchive is returned for anything that isn't a zip or a tar.gz.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for archive entries pointing outside of the archive root.
	ErrUnsafePath = errors.New("unsafe path in archive")
)

// Extractor pulls a single named binary out of an archive.
type Extractor struct {
	log io.Writer
}

// NewExtractor creates an extractor printing its status to w; nil uses the color output.
func NewExtractor(w io.Writer) *Extractor {
	if w == nil {
		w = color.Output
	}
	return &Extractor{log: w}
}

// Extract is a shortcut for extracting without status output.
func Extract(archive, binary, destination string) (string, error) {
	return NewExtractor(io.Discard).Extract(archive, binary, destination)
}

// Extract finds the entry called binary, either at the root of the archive or inside
// a single top level directory, and installs it as destination/binary with 0755
// permissions. The file is written under a temporary name and renamed into place, so
// the destination holds either the previous binary or the complete new one.
// The returned string is the installed path.
func (e *Extractor) Extract(archive, binary, destination string) (installed string, err error) {
	tap.LogDetail(e.log, fmt.Sprintf("extracting %s from %s", binary, filepath.Base(archive)))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.New(color.FgRed).Fprintf(e.log, "     ✘ %s\n", elapsed)
			return
		}
		color.New(color.FgGreen).Fprintf(e.log, "     ✔ %s\n", elapsed)
	}()

	file, err := os.Open(archive)
	if err != nil {
		return "", tap.Fail("artifact.extract", tap.KindFilesystem, archive, err)
	}
	defer file.Close()

	// sniff mime header to determine file type
	header := make([]byte, 512)
	n, _ := io.ReadFull(file, header)
	mime := http.DetectContentType(header[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", tap.Fail("artifact.extract", tap.KindFilesystem, archive, err)
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return "", tap.Fail("artifact.extract", tap.KindFilesystem, destination, err)
	}
	target := filepath.Join(destination, binary)

	switch mime {
	case "application/zip":
		info, err := file.Stat()
		if err != nil {
			return "", tap.Fail("artifact.extract", tap.KindFilesystem, archive, err)
		}
		err = unzip(file, info.Size(), binary, target)
		if err != nil {
			return "", classify(archive, err)
		}
	case "application/x-gzip":
		if err := untar(file, binary, target); err != nil {
			return "", classify(archive, err)
		}
	default:
		return "", tap.Fail("artifact.extract", tap.KindIntegrity, archive, fmt.Errorf("%w: %s", ErrUnsupportedArchive, mime))
	}

	return target, nil
}

func classify(archive string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return tap.Fail("artifact.extract", tap.KindFilesystem, pathErr.Path, err)
	}
	return tap.Fail("artifact.extract", tap.KindIntegrity, archive, err)
}

// matches reports whether an archive entry is the wanted binary and how deep it sits.
func matches(name, binary string) (depth int, ok bool, err error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return 0, false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	if path.Base(clean) != binary {
		return 0, false, nil
	}

	depth = strings.Count(clean, "/")
	return depth, depth <= 1, nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, binary, target string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	var found *zip.File
	foundDepth := -1
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		depth, ok, err := matches(entry.Name, binary)
		if err != nil {
			return err
		}
		if ok && (found == nil || depth < foundDepth) {
			found, foundDepth = entry, depth
		}
	}

	if found == nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, binary)
	}

	contents, err := found.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", found.Name, err)
	}
	defer contents.Close()

	return install(contents, target)
}

// handles .tar.gz files
func untar(file io.Reader, binary, target string) error {
	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer decompressor.Close()

	reader := tar.NewReader(decompressor)

	// tar is sequential; the first acceptable match wins
	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		_, ok, err := matches(header.Name, binary)
		if err != nil {
			return err
		}
		if ok {
			return install(reader, target)
		}
	}

	return fmt.Errorf("%w: %s", ErrBinaryNotFound, binary)
}

// install writes data to a temporary file next to target, marks it executable and renames it onto target.
func install(data io.Reader, target string) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, data); err != nil {
		return fmt.Errorf("failed to copy data to %s: %w", target, err)
	}

	if err := tmp.Chmod(0o755); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), target)
}
