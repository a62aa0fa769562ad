package favorites

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/favorites"
	favSvc "atelier/internal/domain/services/favorites"
)

func strPtr(s string) *string { return &s }

func TestImportBatchForwardReference(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	// The file appears before the folder it belongs to.
	items := []favSvc.ImportItem{
		{TempID: "t2", ParentTempID: strPtr("t1"), Name: "report.txt", Kind: models.KindReference, Target: "doc://report"},
		{TempID: "t1", Name: "inbox", Kind: models.KindFolder},
	}

	mapping, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: items})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if len(mapping) != 2 {
		t.Fatalf("expected 2 mappings, got %v", mapping)
	}

	folder, err := repo.GetByID(ctx, mapping["t1"], "alice")
	if err != nil {
		t.Fatalf("resolved folder missing: %v", err)
	}
	file, err := repo.GetByID(ctx, mapping["t2"], "alice")
	if err != nil {
		t.Fatalf("resolved file missing: %v", err)
	}
	if file.ParentID == nil || *file.ParentID != folder.ID {
		t.Fatalf("file not attached to imported folder: parent=%v folder=%s", file.ParentID, folder.ID)
	}
	if file.Target != "doc://report" {
		t.Fatalf("target lost in import: %q", file.Target)
	}
}

func TestImportBatchDeepChain(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	// Reverse order forces one resolution pass per level.
	items := []favSvc.ImportItem{
		{TempID: "d", ParentTempID: strPtr("c"), Name: "leaf", Kind: models.KindReference, Target: "doc://leaf"},
		{TempID: "c", ParentTempID: strPtr("b"), Name: "c", Kind: models.KindFolder},
		{TempID: "b", ParentTempID: strPtr("a"), Name: "b", Kind: models.KindFolder},
		{TempID: "a", Name: "a", Kind: models.KindFolder},
	}

	mapping, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: items})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}

	leaf, err := repo.GetByID(ctx, mapping["d"], "alice")
	if err != nil {
		t.Fatalf("leaf missing: %v", err)
	}
	if leaf.ParentID == nil || *leaf.ParentID != mapping["c"] {
		t.Fatalf("chain broken at leaf: %+v", leaf)
	}
}

func TestImportBatchLandsUnderFolder(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	landing, err := svc.AddFolder(ctx, &favSvc.AddFolderRequest{OwnerID: "alice", Name: "inbox"})
	if err != nil {
		t.Fatalf("AddFolder: %v", err)
	}

	mapping, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{
		OwnerID:         "alice",
		LandingFolderID: &landing.ID,
		Items: []favSvc.ImportItem{
			{TempID: "t1", Name: "loose", Kind: models.KindReference, Target: "doc://x"},
		},
	})
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}

	node, err := repo.GetByID(ctx, mapping["t1"], "alice")
	if err != nil {
		t.Fatalf("imported node missing: %v", err)
	}
	if node.ParentID == nil || *node.ParentID != landing.ID {
		t.Fatalf("item did not land under folder: %+v", node)
	}
}

func TestImportBatchRejectsCycle(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	items := []favSvc.ImportItem{
		{TempID: "t1", ParentTempID: strPtr("t2"), Name: "a", Kind: models.KindFolder},
		{TempID: "t2", ParentTempID: strPtr("t1"), Name: "b", Kind: models.KindFolder},
	}

	_, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: items})
	var unresolvable *domain.UnresolvableError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("expected unresolvable error, got %v", err)
	}
	if !reflect.DeepEqual(unresolvable.Unresolved, []string{"t1", "t2"}) {
		t.Fatalf("unexpected unresolved set: %v", unresolvable.Unresolved)
	}

	nodes, _ := repo.ListByOwner(ctx, "alice")
	for _, n := range nodes {
		if n.Name == "a" || n.Name == "b" {
			t.Fatalf("cycle member was persisted: %+v", n)
		}
	}
}

func TestImportBatchRejectsUnknownTempParent(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	items := []favSvc.ImportItem{
		{TempID: "t1", ParentTempID: strPtr("nope"), Name: "a", Kind: models.KindFolder},
	}

	_, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: items})
	var unresolvable *domain.UnresolvableError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("expected unresolvable error, got %v", err)
	}
}

func TestImportBatchValidation(t *testing.T) {
	svc, _, _ := newTestService(2)
	ctx := context.Background()

	tests := []struct {
		name  string
		items []favSvc.ImportItem
	}{
		{"empty batch", nil},
		{"over cap", []favSvc.ImportItem{
			{TempID: "t1", Name: "a", Kind: models.KindFolder},
			{TempID: "t2", Name: "b", Kind: models.KindFolder},
			{TempID: "t3", Name: "c", Kind: models.KindFolder},
		}},
		{"duplicate temp ids", []favSvc.ImportItem{
			{TempID: "t1", Name: "a", Kind: models.KindFolder},
			{TempID: "t1", Name: "b", Kind: models.KindFolder},
		}},
		{"both parent fields", []favSvc.ImportItem{
			{TempID: "t1", ParentID: strPtr("node-001"), ParentTempID: strPtr("t2"), Name: "a", Kind: models.KindFolder},
			{TempID: "t2", Name: "b", Kind: models.KindFolder},
		}},
		{"file without target", []favSvc.ImportItem{
			{TempID: "t1", Name: "a", Kind: models.KindReference},
		}},
		{"folder with target", []favSvc.ImportItem{
			{TempID: "t1", Name: "a", Kind: models.KindFolder, Target: "doc://x"},
		}},
		{"unknown kind", []favSvc.ImportItem{
			{TempID: "t1", Name: "a", Kind: "symlink"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: tt.items})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestImportBatchMissingLandingFolder(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	_, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{
		OwnerID:         "alice",
		LandingFolderID: strPtr("node-999"),
		Items:           []favSvc.ImportItem{{TempID: "t1", Name: "a", Kind: models.KindFolder}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImportBatchLandingMustBeFolder(t *testing.T) {
	svc, _, _ := newTestService(100)
	ctx := context.Background()

	ref, err := svc.AddReference(ctx, &favSvc.AddReferenceRequest{OwnerID: "alice", Name: "r", Target: "doc://r"})
	if err != nil {
		t.Fatalf("AddReference: %v", err)
	}

	_, err = svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{
		OwnerID:         "alice",
		LandingFolderID: &ref.ID,
		Items:           []favSvc.ImportItem{{TempID: "t1", Name: "a", Kind: models.KindFolder}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImportBatchRollsBackOnFailure(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	if _, err := svc.GetTree(ctx, "alice"); err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	before, _ := repo.ListByOwner(ctx, "alice")

	repo.failCreateName = "poison"
	repo.failErr = &domain.ConflictError{Message: "boom", ResourceType: "node"}

	items := []favSvc.ImportItem{
		{TempID: "t1", Name: "fine", Kind: models.KindFolder},
		{TempID: "t2", ParentTempID: strPtr("t1"), Name: "poison", Kind: models.KindFolder},
	}
	_, err := svc.ImportBatch(ctx, &favSvc.ImportBatchRequest{OwnerID: "alice", Items: items})
	if err == nil {
		t.Fatal("expected import to fail")
	}

	after, _ := repo.ListByOwner(ctx, "alice")
	if !reflect.DeepEqual(namesOf(after), namesOf(before)) {
		t.Fatalf("partial import survived rollback: %v", namesOf(after))
	}
}

func TestImportBatchIdempotentReplay(t *testing.T) {
	svc, repo, _ := newTestService(100)
	ctx := context.Background()

	req := &favSvc.ImportBatchRequest{
		OwnerID:        "alice",
		IdempotencyKey: "import-1",
		Items: []favSvc.ImportItem{
			{TempID: "t1", Name: "inbox", Kind: models.KindFolder},
		},
	}

	first, err := svc.ImportBatch(ctx, req)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}

	calls := repo.createCalls
	second, err := svc.ImportBatch(ctx, req)
	if err != nil {
		t.Fatalf("replayed ImportBatch: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay returned a different mapping: %v vs %v", second, first)
	}
	if repo.createCalls != calls {
		t.Fatal("replay re-executed the import")
	}
}
