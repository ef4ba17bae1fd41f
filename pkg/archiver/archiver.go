package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/mholt/archiver/v3"
	"github.com/spf13/afero"

	"github.com/flowshot-io/zipdir/pkg/logger"
)

type (
	Options struct {
		// Fs is the filesystem the source is read from and the archive is written to.
		Fs     afero.Fs
		Logger logger.Logger
	}

	// Archiver writes a directory tree into a zip archive.
	Archiver struct {
		fs     afero.Fs
		logger logger.Logger
	}

	// Entry describes one file stored in an archive.
	Entry struct {
		Name           string
		Size           uint64
		CompressedSize uint64
		Method         uint16
		CRC32          uint32
	}
)

func New(opts *Options) *Archiver {
	if opts == nil {
		opts = &Options{}
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Logger == nil {
		opts.Logger = logger.New(&logger.Options{Level: "info"})
	}

	return &Archiver{
		fs:     opts.Fs,
		logger: opts.Logger,
	}
}

// Archive writes every regular file under source into a zip archive at destination,
// named by its slash separated path relative to source. An existing destination is
// truncated. On failure the partial destination is removed, so only a nil error means
// a valid archive exists.
func (a *Archiver) Archive(ctx context.Context, source string, destination string) (err error) {
	info, err := a.fs.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return newError(SourceNotFound, source, err)
		}
		return newError(SourceUnreadable, source, err)
	}

	if !info.IsDir() {
		return newError(SourceNotFound, source, errors.New("not a directory"))
	}

	root, err := a.resolveRoot(source)
	if err != nil {
		return newError(SourceUnreadable, source, err)
	}

	out, err := a.fs.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return newError(OutputUnwritable, destination, err)
	}

	outInfo, err := out.Stat()
	if err != nil {
		_ = out.Close()
		_ = a.fs.Remove(destination)
		return newError(OutputUnwritable, destination, err)
	}

	sink := &trackingWriter{w: out}
	z := archiver.NewZip()
	z.FileMethod = archiver.Deflate
	z.SelectiveCompression = true

	defer func() {
		if err == nil {
			return
		}

		_ = z.Close()
		_ = out.Close()
		if removeErr := a.fs.Remove(destination); removeErr != nil && !os.IsNotExist(removeErr) {
			a.logger.Warn("Failed to remove partial archive", map[string]interface{}{
				"path":  destination,
				"error": removeErr.Error(),
			})
		}
	}()

	if err := z.Create(sink); err != nil {
		return newError(EncodingFailure, destination, err)
	}

	a.logger.Debug("Archiving directory", map[string]interface{}{
		"source":      source,
		"destination": destination,
	})

	run := &session{
		owner:       a,
		zip:         z,
		sink:        sink,
		source:      root,
		destination: absPath(destination),
		outInfo:     outInfo,
	}

	if err := afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
		return run.visit(ctx, path, info, err)
	}); err != nil {
		var archiveErr *Error
		if errors.As(err, &archiveErr) {
			return archiveErr
		}
		return newError(SourceUnreadable, source, err)
	}

	if err := z.Close(); err != nil {
		if sink.err != nil {
			return newError(OutputUnwritable, destination, sink.err)
		}
		return newError(EncodingFailure, destination, err)
	}

	if err := out.Close(); err != nil {
		return newError(OutputUnwritable, destination, err)
	}

	a.logger.Info("Archive finalized", map[string]interface{}{
		"destination": destination,
		"entries":     run.entries,
	})

	return nil
}

// List returns the entries of the zip archive at archivePath on disk.
func (a *Archiver) List(archivePath string) ([]Entry, error) {
	var entries []Entry

	err := archiver.NewZip().Walk(archivePath, func(f archiver.File) error {
		header, ok := f.Header.(zip.FileHeader)
		if !ok {
			return fmt.Errorf("unexpected header type %T", f.Header)
		}

		entries = append(entries, Entry{
			Name:           header.Name,
			Size:           header.UncompressedSize64,
			CompressedSize: header.CompressedSize64,
			Method:         header.Method,
			CRC32:          header.CRC32,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing archive %s: %w", archivePath, err)
	}

	return entries, nil
}

// Unarchive extracts the zip archive at source on disk into destination.
func (a *Archiver) Unarchive(source string, destination string) error {
	if err := archiver.NewZip().Unarchive(source, destination); err != nil {
		return fmt.Errorf("error extracting archive %s: %w", source, err)
	}

	return nil
}

const maxLinkHops = 255

// session holds the state of one Archive run while the tree is walked.
type session struct {
	owner       *Archiver
	zip         *archiver.Zip
	sink        *trackingWriter
	source      string
	destination string
	outInfo     os.FileInfo
	entries     int
}

func (s *session) visit(ctx context.Context, path string, info os.FileInfo, walkErr error) error {
	if err := ctx.Err(); err != nil {
		return newError(OutputUnwritable, s.source, err)
	}

	if walkErr != nil {
		return newError(SourceUnreadable, path, walkErr)
	}

	if info.IsDir() {
		return nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		resolved, err := s.owner.fs.Stat(path)
		if err != nil {
			return newError(SourceUnreadable, path, err)
		}

		if resolved.IsDir() {
			s.owner.logger.Warn("Skipping symlink to directory", map[string]interface{}{
				"path": path,
			})
			return nil
		}
		info = resolved
	}

	if !info.Mode().IsRegular() {
		s.owner.logger.Warn("Skipping non-regular file", map[string]interface{}{
			"path": path,
			"mode": info.Mode().String(),
		})
		return nil
	}

	if absPath(path) == s.destination || os.SameFile(info, s.outInfo) {
		return nil
	}

	rel, err := filepath.Rel(s.source, path)
	if err != nil {
		return newError(SourceUnreadable, path, err)
	}

	if err := s.add(path, filepath.ToSlash(rel), info); err != nil {
		return err
	}

	s.entries++
	return nil
}

func (s *session) add(path string, name string, info os.FileInfo) error {
	file, err := s.owner.fs.Open(path)
	if err != nil {
		return newError(SourceUnreadable, path, err)
	}
	defer file.Close()

	content := &trackingReader{r: file}
	err = s.zip.Write(archiver.File{
		FileInfo: archiver.FileInfo{
			FileInfo:   info,
			CustomName: name,
		},
		ReadCloser: content,
	})

	switch {
	case err == nil:
		s.owner.logger.Trace("Added entry", map[string]interface{}{
			"name": name,
			"size": info.Size(),
		})
		return nil
	case content.err != nil:
		return newError(SourceUnreadable, path, content.err)
	case s.sink.err != nil:
		return newError(OutputUnwritable, s.destination, s.sink.err)
	default:
		return newError(EncodingFailure, path, err)
	}
}

// resolveRoot follows a symlinked source so the walk descends into its target.
func (a *Archiver) resolveRoot(source string) (string, error) {
	lstater, ok := a.fs.(afero.Lstater)
	if !ok {
		return source, nil
	}

	reader, ok := a.fs.(afero.LinkReader)
	if !ok {
		return source, nil
	}

	root := source
	for hops := 0; ; hops++ {
		if hops == maxLinkHops {
			return "", fmt.Errorf("too many levels of symbolic links")
		}

		info, _, err := lstater.LstatIfPossible(root)
		if err != nil {
			return "", err
		}

		if info.Mode()&os.ModeSymlink == 0 {
			return root, nil
		}

		target, err := reader.ReadlinkIfPossible(root)
		if err != nil {
			return "", err
		}

		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(root), target)
		}
		root = target
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// trackingReader records the first read error so encoder failures can be attributed.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// Close is a no-op; Archive closes the underlying file itself.
func (t *trackingReader) Close() error {
	return nil
}

// trackingWriter records the first write error on the output stream.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
