package diag

import (
	"testing"

	"logos/internal/source"
)

func at(file source.FileID, start uint32) source.Span {
	return source.Span{File: file, Start: start, End: start + 1}
}

func TestBagSortsByLocationThenCode(t *testing.T) {
	b := NewBag(16)
	b.Add(NewError(OwnDoubleTransfer, at(0, 40), "later"))
	b.Add(NewError(OwnUseAfterMove, at(0, 10), "earlier"))
	b.Add(NewError(OwnUseAfterMove, at(1, 5), "other file"))
	b.Add(NewError(OwnUseAfterMaybeMove, at(0, 10), "same spot, higher code"))
	b.Sort()

	items := b.Items()
	wantMsgs := []string{"earlier", "same spot, higher code", "later", "other file"}
	for i, want := range wantMsgs {
		if items[i].Message != want {
			t.Errorf("position %d: got %q, want %q", i, items[i].Message, want)
		}
	}
}

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(OwnUseAfterMove, at(0, 1), "one")) {
		t.Errorf("first add should succeed")
	}
	b.Add(NewError(OwnUseAfterMove, at(0, 2), "two"))
	if b.Add(NewError(OwnUseAfterMove, at(0, 3), "three")) {
		t.Errorf("the cap should reject the third diagnostic")
	}
	if b.Len() != 2 {
		t.Errorf("Len: got %d, want 2", b.Len())
	}
}

func TestHasErrors(t *testing.T) {
	b := NewBag(16)
	b.Add(New(SevWarning, OwnInfo, at(0, 1), "just a warning"))
	if b.HasErrors() {
		t.Errorf("warnings are not errors")
	}
	b.Add(NewError(OwnUseAfterMove, at(0, 2), "boom"))
	if !b.HasErrors() {
		t.Errorf("an error severity should flip HasErrors")
	}
}

// Merge keeps everything both bags collected, growing the limit when
// per-function bags add up past it.
func TestMergeGrowsTheCap(t *testing.T) {
	dst := NewBag(2)
	dst.Add(NewError(OwnUseAfterMove, at(0, 1), "a"))

	src := NewBag(16)
	src.Add(NewError(OwnUseAfterMove, at(0, 2), "b"))
	src.Add(NewError(OwnUseAfterMove, at(0, 3), "c"))

	dst.Merge(src)
	if dst.Len() != 3 {
		t.Errorf("merge keeps all items, got %d", dst.Len())
	}
	if dst.Cap() < 3 {
		t.Errorf("the cap should grow to fit, got %d", dst.Cap())
	}
}

func TestCodeIDs(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{OwnUseAfterMove, "OWN4001"},
		{OwnUseAfterMaybeMove, "OWN4002"},
		{OwnDoubleTransfer, "OWN4003"},
		{OwnLoopTransfer, "OWN4004"},
		{IntNonTermination, "INT9001"},
	}
	for _, tc := range cases {
		if got := tc.code.ID(); got != tc.want {
			t.Errorf("ID(%d): got %q, want %q", tc.code, got, tc.want)
		}
	}
	if OwnUseAfterMove.Title() == "" {
		t.Errorf("known codes carry a title")
	}
}

func TestBuilderAttachments(t *testing.T) {
	d := NewError(OwnDoubleTransfer, at(0, 7), "twice").
		WithNote(at(0, 3), "first transferred here").
		WithFix("duplicate it", FixEdit{Span: at(0, 7), NewText: "duplicate of x"})

	if len(d.Notes) != 1 || d.Notes[0].Msg != "first transferred here" {
		t.Errorf("note not attached: %+v", d.Notes)
	}
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 {
		t.Errorf("fix not attached: %+v", d.Fixes)
	}
	if d.Severity != SevError {
		t.Errorf("NewError should carry the error severity")
	}
}
