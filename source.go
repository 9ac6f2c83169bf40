package connector

import (
	"context"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
)

// SourceArchive is the connector's own source bundle, exposed for license
// compliance. Data is empty when the archive could not be read.
type SourceArchive struct {
	FileName string
	Data     []byte
	UsesAGPL bool
}

// Available reports whether the archive carries any bytes.
func (a SourceArchive) Available() bool {
	return len(a.Data) > 0
}

// SourceArchiveName returns the archive file name derived from build info.
func SourceArchiveName(artifact, version string) string {
	return fmt.Sprintf("%s-%s-sources.tar.gz", artifact, version)
}

// readSourceArchive reads name from fsys. Failures are logged and produce an
// archive with empty data; they never reach the caller.
func readSourceArchive(ctx context.Context, fsys fs.FS, name string, agpl bool, logger *zap.Logger) SourceArchive {
	archive := SourceArchive{FileName: name, UsesAGPL: agpl}
	if fsys == nil {
		logger.Warn("No source filesystem configured",
			zap.String("file", name),
			zap.Error(ErrSourceArchiveUnavailable))
		return archive
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("Source retrieval cancelled", zap.String("file", name), zap.Error(err))
		return archive
	}

	logger.Debug("Reading source archive", zap.String("file", name))
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		logger.Error("Exception reading source",
			zap.String("file", name),
			zap.Error(fmt.Errorf("%w: %v", ErrSourceArchiveUnavailable, err)))
		return archive
	}
	archive.Data = data
	return archive
}
