package favorites

import "testing"

func strPtr(s string) *string { return &s }

func TestBuildTreeNests(t *testing.T) {
	nodes := []Node{
		{ID: "root", Name: "/", Kind: KindFolder},
		{ID: "f1", ParentID: strPtr("root"), Name: "papers", Kind: KindFolder},
		{ID: "r1", ParentID: strPtr("f1"), Name: "draft", Kind: KindReference, Target: "doc://d"},
		{ID: "r2", ParentID: strPtr("root"), Name: "aaa", Kind: KindReference, Target: "doc://a"},
	}

	roots := BuildTree(nodes)
	if len(roots) != 1 || roots[0].ID != "root" {
		t.Fatalf("unexpected roots: %+v", roots)
	}

	children := roots[0].Children
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	// Folders sort before references regardless of name.
	if children[0].ID != "f1" || children[1].ID != "r2" {
		t.Fatalf("children out of order: %s, %s", children[0].ID, children[1].ID)
	}
	if len(children[0].Children) != 1 || children[0].Children[0].ID != "r1" {
		t.Fatalf("nested child missing: %+v", children[0].Children)
	}
}

func TestBuildTreeSurfacesOrphans(t *testing.T) {
	nodes := []Node{
		{ID: "root", Name: "/", Kind: KindFolder},
		{ID: "lost", ParentID: strPtr("gone"), Name: "lost", Kind: KindFolder},
	}

	roots := BuildTree(nodes)
	if len(roots) != 2 {
		t.Fatalf("orphan dropped: %d roots", len(roots))
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	if roots := BuildTree(nil); len(roots) != 0 {
		t.Fatalf("expected no roots, got %d", len(roots))
	}
}

func TestConstructors(t *testing.T) {
	folder := NewFolder("alice", nil, "/")
	if !folder.IsFolder() || !folder.IsRoot() || folder.Target != "" {
		t.Fatalf("unexpected folder: %+v", folder)
	}

	parent := "f1"
	ref := NewReference("alice", &parent, "draft", "doc://d")
	if ref.IsFolder() || ref.IsRoot() || ref.Target != "doc://d" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestNodeKindValid(t *testing.T) {
	if !KindFolder.Valid() || !KindReference.Valid() {
		t.Fatal("known kinds reported invalid")
	}
	if NodeKind("symlink").Valid() {
		t.Fatal("unknown kind reported valid")
	}
}
