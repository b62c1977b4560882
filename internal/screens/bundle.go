package screens

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// ErrUnsupportedAttachment is returned for resources that are not a supported image.
var ErrUnsupportedAttachment = errors.New("unsupported attachment type")

var imageTypes = []string{"image/png", "image/jpeg", "image/gif"}

// Bundle is the directory of resources shipped with the client.
type Bundle struct {
	dir  string
	fsys fs.FS
}

func NewBundle(dir string) *Bundle {
	return &Bundle{dir: dir, fsys: os.DirFS(dir)}
}

// Has reports whether the bundle contains a regular file with the given name.
func (b *Bundle) Has(name string) bool {
	info, err := fs.Stat(b.fsys, name)
	return err == nil && info.Mode().IsRegular()
}

// ImageAttachment loads a bundled image. The type is detected from the file
// content, not from its extension.
func (b *Bundle) ImageAttachment(identifier, name string) (model.Attachment, error) {
	f, err := b.fsys.Open(name)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("detect type of %s: %w", name, err)
	}
	if !mimetype.EqualsAny(mtype.String(), imageTypes...) {
		return model.Attachment{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedAttachment, name, mtype.String())
	}

	path, err := filepath.Abs(filepath.Join(b.dir, name))
	if err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{Identifier: identifier, URL: path, Type: mtype.String()}, nil
}
