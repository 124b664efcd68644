package simulator

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	g := NewRegistry()
	ctx := context.Background()

	a, _ := NewResource(Descriptor{URI: "/b"}, nil, ResourceConfig{})
	b, _ := NewResource(Descriptor{URI: "/a"}, nil, ResourceConfig{})
	if err := g.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(a); !errors.Is(err, ErrResourceExists) {
		t.Errorf("duplicate Add() error = %v", err)
	}

	list := g.List()
	if len(list) != 2 || list[0].URI() != "/a" {
		t.Errorf("List() order wrong")
	}

	if err := g.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	if !a.IsRunning() || !b.IsRunning() {
		t.Error("StartAll() left a resource stopped")
	}

	if _, err := g.Get("/missing"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if err := g.Remove(ctx, "/a"); err != nil {
		t.Fatal(err)
	}
	if b.IsRunning() {
		t.Error("Remove() did not stop the resource")
	}

	if err := g.StopAll(ctx); err != nil {
		t.Fatal(err)
	}
	if a.IsRunning() {
		t.Error("StopAll() left a resource running")
	}
}
