package types

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/famomatic/yledl/internal/filesystem"
)

// SaneFilename removes characters that are unsafe in filenames. Characters
// in excludeChars are replaced with an underscore.
func SaneFilename(name, excludeChars string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// drop control characters
		case strings.ContainsRune(excludeChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// OutputFileNameGenerator selects the output filename for a clip, either
// from the user-supplied name or from the clip title.
type OutputFileNameGenerator struct{}

// Path computes the output path for a clip without touching the
// filesystem.
func (g OutputFileNameGenerator) Path(title string, extension FileExtension, io *IOContext) string {
	if io.OutputFilename != "" {
		return g.filenameFromTemplate(io.OutputFilename, io.DestDir, extension)
	}
	destDir := io.DestDir
	if strings.Contains(title, "/") {
		// The title contains subdirectories
		idx := strings.LastIndex(title, "/")
		destDir = filepath.Join(destDir, filepath.FromSlash(title[:idx]))
		title = title[idx+1:]
	}
	sanitized := SaneFilename(title, io.ExcludeChars)
	path := g.filenameFromTitle(sanitized, destDir, extension)
	return imposeMaximumFilenameLength(path)
}

// Filename returns the output path for a clip and makes sure its parent
// directory exists. The directory is created when io.CreateDirs is set;
// otherwise a missing directory is an error.
func (g OutputFileNameGenerator) Filename(title string, extension FileExtension, io *IOContext) (string, error) {
	path := g.Path(title, extension, io)

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		exists, err := filesystem.API().DirExists(dir)
		if err != nil {
			return "", err
		}
		if !exists {
			if !io.CreateDirs {
				return "", fmt.Errorf("directory %q does not exist. Use --create-dirs to automatically create", dir)
			}
			if err := filesystem.API().MkdirAll(dir, 0o755); err != nil {
				return "", err
			}
		}
	}

	return path, nil
}

func (g OutputFileNameGenerator) filenameFromTemplate(basename, destDir string, extension FileExtension) string {
	path := basename
	if !filepath.IsAbs(basename) && destDir != "" {
		path = filepath.Join(destDir, basename)
	}
	if extension.Mandatory {
		return replaceExtension(path, extension.Extension)
	}
	return appendExtIfMissing(path, extension.Extension)
}

func (g OutputFileNameGenerator) filenameFromTitle(title, destDir string, extension FileExtension) string {
	if title == "" {
		title = "ylestream"
	}
	filename := title + extension.Extension
	if destDir != "" {
		filename = filepath.Join(destDir, filename)
	}
	return filename
}

func replaceExtension(filename, ext string) string {
	oldExt := filepath.Ext(filename)
	if oldExt == ext {
		return filename
	}
	return strings.TrimSuffix(filename, oldExt) + ext
}

func appendExtIfMissing(filename, ext string) string {
	if filepath.Ext(filename) != "" {
		return filename
	}
	return filename + ext
}

// imposeMaximumFilenameLength shortens the last path component to fit into
// the common 255-byte filesystem limit, keeping the extension intact.
func imposeMaximumFilenameLength(path string) string {
	dir, file := filepath.Split(path)
	if len(file) <= 255 {
		return path
	}
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)
	keep := 255 - len(ext)
	// avoid splitting a multi-byte rune
	for keep > 0 && !isRuneStart(base[keep]) {
		keep--
	}
	return filepath.Join(dir, base[:keep]+ext)
}

func isRuneStart(b byte) bool { return b&0xc0 != 0x80 }
