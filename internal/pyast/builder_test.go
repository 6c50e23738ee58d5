package pyast

import (
	"testing"

	"pyflow/internal/source"
)

func TestArenaIDsAreOneBased(t *testing.T) {
	a := NewArena[int](4)
	first := a.Allocate(10)
	second := a.Allocate(20)
	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first, second)
	}
	if got := *a.Get(first); got != 10 {
		t.Fatalf("Get(first) = %d, want 10", got)
	}
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
}

func TestBuilderPushStmtAppendsInOrder(t *testing.T) {
	b := NewBuilder(Hints{})
	file := b.NewFile(source.Span{Start: 0, End: 10}, 0)
	s1 := b.NewStmt(Stmt{Kind: StmtPass})
	s2 := b.NewStmt(Stmt{Kind: StmtPass})
	b.PushStmt(file, s1)
	b.PushStmt(file, s2)
	body := b.Files.Get(file).Body
	if len(body) != 2 || body[0] != s1 || body[1] != s2 {
		t.Fatalf("body = %v, want [%d %d]", body, s1, s2)
	}
}

func TestBuilderInternRoundTrips(t *testing.T) {
	b := NewBuilder(Hints{})
	id := b.Intern("counter")
	again := b.Intern("counter")
	if id != again {
		t.Fatalf("interning the same name twice gave %d and %d", id, again)
	}
	if got := b.Name(id); got != "counter" {
		t.Fatalf("Name(%d) = %q, want \"counter\"", id, got)
	}
}

func TestInvalidIDsAreZero(t *testing.T) {
	if NoFileID.IsValid() || NoStmtID.IsValid() || NoExprID.IsValid() {
		t.Fatalf("zero ids must be invalid")
	}
	if !FileID(1).IsValid() {
		t.Fatalf("id 1 must be valid")
	}
}
