package manager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"ggufchat/internal/common/fsutil"
	"ggufchat/internal/registry"
	"ggufchat/pkg/types"
)

// uploadChunk bounds each copy step so progress can be reported.
const uploadChunk = 1 << 20

// Upload copies r into the models directory and returns the saved path.
// The file name comes from customName when set (with the model extension
// appended if missing), else from originalName. Directory components are
// stripped and unsafe characters replaced. size, when positive, is the
// expected byte count; a short or long stream is rejected. progress may be
// nil. The destination only appears once the copy has completed.
func (m *Manager) Upload(r io.Reader, size int64, originalName, customName string, progress func(written, total int64)) (string, error) {
	name, err := UploadName(originalName, customName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}
	dst := filepath.Join(m.modelsDir, name)

	var written int64
	err = fsutil.WriteFileAtomic(dst, 0o644, func(w io.Writer) error {
		buf := make([]byte, uploadChunk)
		for {
			n, rerr := io.ReadFull(r, buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return werr
				}
				written += int64(n)
				if progress != nil {
					progress(written, size)
				}
			}
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				break
			}
			if rerr != nil {
				return rerr
			}
		}
		if size > 0 && written != size {
			return fmt.Errorf("received %d of %d bytes", written, size)
		}
		return nil
	})
	if err != nil {
		m.log.Error().Err(err).Str("name", name).Msg("model upload failed")
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	m.log.Info().Str("path", dst).Str("size", humanize.IBytes(uint64(written))).Msg("model uploaded")
	return dst, nil
}

// UploadName derives the stored file name for an upload.
func UploadName(originalName, customName string) (string, error) {
	custom := strings.TrimSpace(customName)
	name := custom
	if name == "" {
		name = strings.TrimSpace(originalName)
	}
	// Treat both separators as directory boundaries regardless of platform.
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = fsutil.ReplaceUnsafe(name)
	if custom != "" && !registry.IsModelFile(name) {
		name += types.ModelExt
	}
	if !registry.IsModelFile(name) {
		return "", ErrInvalidFormat(name, "expected "+types.ModelExt+" extension")
	}
	stem := name[:len(name)-len(types.ModelExt)]
	if strings.Trim(stem, ". ") == "" {
		return "", ErrInvalidFormat(name, "empty file name")
	}
	return name, nil
}
