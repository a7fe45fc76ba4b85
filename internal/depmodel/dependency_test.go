package depmodel

import (
	"reflect"
	"testing"
)

func TestMergeIdempotent(t *testing.T) {
	x := Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", Direct: true, Manifest: "requirements.txt"}
	y := Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", Direct: false, Manifest: "poetry.lock"}

	once := Merge(x, y)
	twice := Merge(x, once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent: once=%+v twice=%+v", once, twice)
	}
}

func TestMergeDirectIsOR(t *testing.T) {
	direct := Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", Direct: true, Manifest: "requirements.txt"}
	indirect := Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", Direct: false, Manifest: "poetry.lock"}

	merged := Merge(indirect, direct)
	if !merged.Direct {
		t.Fatal("expected Direct=true when either input is direct")
	}

	manifests, _ := merged.Metadata["manifests"].([]string)
	want := map[string]bool{"poetry.lock": true, "requirements.txt": true}
	if len(manifests) != len(want) {
		t.Fatalf("expected %d manifests, got %v", len(want), manifests)
	}
	for _, m := range manifests {
		if !want[m] {
			t.Fatalf("unexpected manifest %q in %v", m, manifests)
		}
	}
}

func TestCoordinateAndMetadataKey(t *testing.T) {
	d := Dependency{Ecosystem: "PyPI", Name: "Requests", Version: "2.31.0"}
	if got, want := d.Coordinate(), "PyPI:Requests@2.31.0"; got != want {
		t.Fatalf("Coordinate() = %q, want %q", got, want)
	}
	if got, want := d.MetadataKey(), "pypi:requests"; got != want {
		t.Fatalf("MetadataKey() = %q, want %q", got, want)
	}
}
