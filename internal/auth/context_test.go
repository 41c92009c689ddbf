package auth

import (
	"context"
	"testing"
)

func TestWithParentAndFromContext(t *testing.T) {
	pc := ParentContext{
		UserID:   1,
		FamilyID: 2,
		Token:    "abc",
	}

	ctx := WithParent(context.Background(), pc)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected ParentContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.FamilyID != 2 {
		t.Errorf("FamilyID = %d, want 2", got.FamilyID)
	}
	if got.Token != "abc" {
		t.Errorf("Token = %q, want %q", got.Token, "abc")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing ParentContext")
	}
}

func TestParentID(t *testing.T) {
	ctx := WithParent(context.Background(), ParentContext{UserID: 7})
	if ParentID(ctx) != 7 {
		t.Errorf("ParentID = %d, want 7", ParentID(ctx))
	}
}

func TestParentIDMissing(t *testing.T) {
	if ParentID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestFamilyID(t *testing.T) {
	ctx := WithParent(context.Background(), ParentContext{FamilyID: 42})
	if FamilyID(ctx) != 42 {
		t.Errorf("FamilyID = %d, want 42", FamilyID(ctx))
	}
}

func TestFamilyIDMissing(t *testing.T) {
	if FamilyID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}
