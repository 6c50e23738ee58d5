package pyast

import (
	"pyflow/internal/source"
)

// File is the root of one analyzed module: its statements in program order.
type File struct {
	Span   source.Span
	Source source.FileID
	Body   []StmtID
}

type Files struct {
	Arena *Arena[File]
}

func NewFiles(capHint uint) *Files {
	return &Files{
		Arena: NewArena[File](capHint),
	}
}

func (f *Files) New(span source.Span, src source.FileID) FileID {
	return FileID(f.Arena.Allocate(File{Span: span, Source: src}))
}

func (f *Files) Get(id FileID) *File {
	return f.Arena.Get(uint32(id))
}
