package sqlite

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/keepster-cli/internal/domain"
)

const importBatchSize = 200

var importExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

type ImportResult struct {
	Scanned int
	Added   int
	// Existing files were already cataloged.
	Existing int
	// Invalid files had an image extension but could not be decoded.
	Invalid int
}

// ImportProgress receives running totals while ImportDir walks the tree. It
// is called on the importing goroutine.
type ImportProgress func(ImportResult)

// ItemIDForPath derives a stable item id so re-importing a tree is a no-op.
func ItemIDForPath(absPath string) domain.ItemID {
	return domain.ItemID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+absPath)).String())
}

// ImportDir walks root and catalogs every decodable image. Hidden
// directories and the trash directory are not descended into. progress may
// be nil.
func (c *Catalog) ImportDir(ctx context.Context, root string, progress ImportProgress) (ImportResult, error) {
	if progress == nil {
		progress = func(ImportResult) {}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ImportResult{}, fmt.Errorf("resolve import root: %w", err)
	}
	trash, _ := filepath.Abs(c.trashDir)

	var (
		result ImportResult
		batch  []domain.Item
	)
	flush := func() error {
		added, err := c.AddItems(ctx, batch)
		if err != nil {
			return err
		}
		result.Added += added
		batch = batch[:0]
		progress(result)
		return nil
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if path != absRoot && (strings.HasPrefix(entry.Name(), ".") || path == trash) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := importExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		result.Scanned++
		item, ok := describeImage(path, entry)
		if !ok {
			result.Invalid++
			progress(result)
			return nil
		}
		progress(result)
		batch = append(batch, item)
		if len(batch) >= importBatchSize {
			return flush()
		}
		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("import %s: %w", root, walkErr)
	}
	if err := flush(); err != nil {
		return result, fmt.Errorf("import %s: %w", root, err)
	}

	result.Existing = result.Scanned - result.Invalid - result.Added
	return result, nil
}

func describeImage(path string, entry fs.DirEntry) (domain.Item, bool) {
	info, err := entry.Info()
	if err != nil {
		return domain.Item{}, false
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.Item{}, false
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return domain.Item{}, false
	}

	return domain.Item{
		ID:        ItemIDForPath(path),
		CreatedAt: info.ModTime().UTC(),
		Width:     config.Width,
		Height:    config.Height,
		Filename:  entry.Name(),
		Path:      path,
		SizeBytes: info.Size(),
	}, true
}
