// Package driver hosts the analysis engine: it loads parser documents,
// runs the flow pass and collects per-file diagnostic bags. All I/O and
// all parallelism live here; the engine itself stays pure.
package driver

import (
	"crypto/sha256"
	"fmt"
	"os"

	"pyflow/internal/diag"
	"pyflow/internal/program"
	"pyflow/internal/pyast"
	"pyflow/internal/sema"
	"pyflow/internal/source"
)

// Config carries the per-run knobs shared by every analyzed file.
type Config struct {
	MaxDiagnostics int
	Sema           sema.Options // Reporter is overridden per file
	Cache          *DiskCache   // nil disables the disk cache
}

// FileResult is the outcome of analyzing one document.
type FileResult struct {
	Path      string
	Source    source.FileID
	Bag       *diag.Bag
	Truncated bool
	FromCache bool
}

// AnalyzeFile loads one document from disk and analyzes it. A cache hit
// restores the recorded diagnostics without re-running the engine; the
// embedded source is still registered so spans resolve.
func AnalyzeFile(path string, files *source.FileSet, cfg Config) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		bag := diag.NewBag(cfg.MaxDiagnostics)
		bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("failed to load file: %v", err)))
		return FileResult{Path: path, Bag: bag}
	}

	key := sha256.Sum256(data)
	if cfg.Cache != nil {
		var payload DiskPayload
		if ok, err := cfg.Cache.Get(key, &payload); err == nil && ok {
			return restoreResult(path, &payload, files, cfg)
		}
	}

	res, decoded := analyzeBytes(path, data, files, cfg)
	if cfg.Cache != nil && decoded {
		// Cache failures never fail the run.
		_ = cfg.Cache.Put(key, buildPayload(files, res))
	}
	return res
}

// AnalyzeBytes decodes a raw document and runs the flow pass over it.
func AnalyzeBytes(path string, data []byte, files *source.FileSet, cfg Config) FileResult {
	res, _ := analyzeBytes(path, data, files, cfg)
	return res
}

// analyzeBytes additionally reports whether the document decoded far
// enough to register its source, which gates cache writes.
func analyzeBytes(path string, data []byte, files *source.FileSet, cfg Config) (FileResult, bool) {
	bag := diag.NewBag(cfg.MaxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	builder := pyast.NewBuilder(pyast.Hints{})
	dec, err := program.Decode(data, builder, files, reporter)
	if err != nil {
		return FileResult{Path: path, Bag: bag}, false
	}

	opts := cfg.Sema
	opts.Reporter = reporter
	res := sema.Check(builder, dec.File, opts)

	return FileResult{
		Path:      path,
		Source:    dec.Source,
		Bag:       bag,
		Truncated: res.Truncated,
	}, true
}

// restoreResult replays a cached analysis: the source text registers
// under a fresh FileID and every recorded span is rebased onto it.
func restoreResult(path string, payload *DiskPayload, files *source.FileSet, cfg Config) FileResult {
	src := files.Add(path, []byte(payload.Source), 0)
	bag := diag.NewBag(cfg.MaxDiagnostics)
	for _, cd := range payload.Diags {
		d := diag.New(
			diag.Severity(cd.Severity),
			diag.Code(cd.Code),
			source.Span{File: src, Start: cd.StartByte, End: cd.EndByte},
			cd.Message,
		)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: src, Start: n.StartByte, End: n.EndByte}, n.Message)
		}
		bag.Add(d)
	}
	return FileResult{
		Path:      path,
		Source:    src,
		Bag:       bag,
		Truncated: payload.Truncated,
		FromCache: true,
	}
}

func buildPayload(files *source.FileSet, res FileResult) *DiskPayload {
	payload := &DiskPayload{
		Schema:    diskCacheSchemaVersion,
		Path:      res.Path,
		Source:    string(files.Get(res.Source).Content),
		Truncated: res.Truncated,
	}
	for _, d := range res.Bag.Items() {
		cd := CachedDiag{
			Severity:  uint8(d.Severity),
			Code:      uint16(d.Code),
			StartByte: d.Primary.Start,
			EndByte:   d.Primary.End,
			Message:   d.Message,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{
				StartByte: n.Span.Start,
				EndByte:   n.Span.End,
				Message:   n.Msg,
			})
		}
		payload.Diags = append(payload.Diags, cd)
	}
	return payload
}
