// Package testkit holds structural checks shared by tests. It is not
// imported by production code.
package testkit

import (
	"fmt"

	"pyflow/internal/pyast"
	"pyflow/internal/source"
)

// CheckSpanInvariants verifies that every node reachable from the file
// carries a span that stays within the file's content. Empty spans are
// allowed: nodes without location data carry a zero span.
func CheckSpanInvariants(b *pyast.Builder, fileID pyast.FileID, sf *source.File) error {
	file := b.Files.Get(fileID)
	if file == nil {
		return fmt.Errorf("file %d not found in builder", fileID)
	}
	size := uint32(len(sf.Content))
	if err := checkSpan("file", file.Span, sf.ID, size); err != nil {
		return err
	}
	for _, sid := range file.Body {
		if err := checkStmt(b, sid, sf.ID, size); err != nil {
			return err
		}
	}
	return nil
}

func checkStmt(b *pyast.Builder, id pyast.StmtID, src source.FileID, size uint32) error {
	if !id.IsValid() {
		return fmt.Errorf("invalid stmt id in body")
	}
	st := b.Stmts.Get(id)
	if err := checkSpan(fmt.Sprintf("stmt %d", id), st.Span, src, size); err != nil {
		return err
	}
	for _, tid := range st.Targets {
		if err := checkExpr(b, tid, src, size); err != nil {
			return err
		}
	}
	for _, eid := range []pyast.ExprID{st.Ann, st.Value, st.Returns} {
		if eid.IsValid() {
			if err := checkExpr(b, eid, src, size); err != nil {
				return err
			}
		}
	}
	for _, p := range st.Params {
		if err := checkSpan("param", p.Span, src, size); err != nil {
			return err
		}
		if p.Ann.IsValid() {
			if err := checkExpr(b, p.Ann, src, size); err != nil {
				return err
			}
		}
	}
	for _, sid := range st.Body {
		if err := checkStmt(b, sid, src, size); err != nil {
			return err
		}
	}
	return nil
}

func checkExpr(b *pyast.Builder, id pyast.ExprID, src source.FileID, size uint32) error {
	if !id.IsValid() {
		return fmt.Errorf("invalid expr id")
	}
	ex := b.Exprs.Get(id)
	if err := checkSpan(fmt.Sprintf("expr %d", id), ex.Span, src, size); err != nil {
		return err
	}
	for _, child := range []pyast.ExprID{ex.X, ex.Y} {
		if child.IsValid() {
			if err := checkExpr(b, child, src, size); err != nil {
				return err
			}
		}
	}
	for _, child := range ex.Keys {
		if child.IsValid() {
			if err := checkExpr(b, child, src, size); err != nil {
				return err
			}
		}
	}
	for _, child := range ex.Elems {
		if err := checkExpr(b, child, src, size); err != nil {
			return err
		}
	}
	return nil
}

func checkSpan(what string, sp source.Span, src source.FileID, size uint32) error {
	if sp.Empty() && sp.Start == 0 {
		return nil
	}
	if sp.File != src {
		return fmt.Errorf("%s: span file %d, want %d", what, sp.File, src)
	}
	if sp.End < sp.Start {
		return fmt.Errorf("%s: span end %d before start %d", what, sp.End, sp.Start)
	}
	if sp.End > size {
		return fmt.Errorf("%s: span %d-%d exceeds content size %d", what, sp.Start, sp.End, size)
	}
	return nil
}
