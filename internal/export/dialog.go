package export

import (
	"context"

	"github.com/unkn0wn-root/respane/internal/filesvc"
)

// FixedDialog answers every prompt with Path, resolved against Base. It backs
// non-interactive exports.
type FixedDialog struct {
	Path string
	Base string
}

func (d FixedDialog) SaveFile(_ context.Context, _ SaveOptions) (string, error) {
	if d.Path == "" {
		return "", nil
	}
	return filesvc.ResolvePath(d.Path, d.Base)
}
