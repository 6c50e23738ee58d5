package driver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"pyflow/internal/diag"
	"pyflow/internal/program"
	"pyflow/internal/pyast"
	"pyflow/internal/sema"
	"pyflow/internal/source"
)

// ListDocuments collects every *.json document under dir in
// deterministic order.
func ListDocuments(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// pendingFile is a decoded document waiting for its flow pass.
type pendingFile struct {
	builder *pyast.Builder
	file    pyast.FileID
	key     Digest
}

// AnalyzeDir analyzes every document under dir. Documents are loaded
// and decoded serially (the FileSet is not safe for concurrent writes),
// then the flow passes run in parallel. onFile, when non-nil, is called
// from worker goroutines as each file completes and must be safe for
// concurrent use.
func AnalyzeDir(ctx context.Context, dir string, cfg Config, jobs int, onFile func(FileResult)) (*source.FileSet, []FileResult, error) {
	files, err := ListDocuments(dir)
	if err != nil {
		return nil, nil, err
	}

	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	results := make([]FileResult, len(files))
	pending := make(map[int]*pendingFile, len(files))

	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			bag := diag.NewBag(cfg.MaxDiagnostics)
			bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{},
				fmt.Sprintf("failed to load file: %v", err)))
			results[i] = FileResult{Path: path, Bag: bag}
			continue
		}

		key := sha256.Sum256(data)
		if cfg.Cache != nil {
			var payload DiskPayload
			if ok, err := cfg.Cache.Get(key, &payload); err == nil && ok {
				results[i] = restoreResult(path, &payload, fileSet, cfg)
				continue
			}
		}

		bag := diag.NewBag(cfg.MaxDiagnostics)
		builder := pyast.NewBuilder(pyast.Hints{})
		dec, err := program.Decode(data, builder, fileSet, diag.BagReporter{Bag: bag})
		if err != nil {
			results[i] = FileResult{Path: path, Bag: bag}
			continue
		}
		results[i] = FileResult{Path: path, Source: dec.Source, Bag: bag}
		pending[i] = &pendingFile{builder: builder, file: dec.File, key: key}
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i := range files {
		p, ok := pending[i]
		if !ok {
			// Loaded from cache or failed before analysis.
			if onFile != nil {
				onFile(results[i])
			}
			continue
		}
		g.Go(func(i int, p *pendingFile) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				opts := cfg.Sema
				opts.Reporter = diag.BagReporter{Bag: results[i].Bag}
				res := sema.Check(p.builder, p.file, opts)
				results[i].Truncated = res.Truncated

				if cfg.Cache != nil {
					_ = cfg.Cache.Put(p.key, buildPayload(fileSet, results[i]))
				}
				if onFile != nil {
					onFile(results[i])
				}
				return nil
			}
		}(i, p))
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}
