package registry

import "testing"

func TestPyPIMaintainerListPrefersExplicitMaintainers(t *testing.T) {
	info := pypiInfo{
		Author:      "Ann",
		Maintainer:  "Bea",
		Maintainers: []pypiMaintainer{{Username: "ann-dev"}},
	}
	got := pypiMaintainerList(info)
	if len(got) != 1 || got[0] != "ann-dev" {
		t.Fatalf("pypiMaintainerList = %v, want [ann-dev]", got)
	}
}

func TestPyPIMaintainerListFallsBackToAuthorAndMaintainerBoth(t *testing.T) {
	info := pypiInfo{Author: "Ann", Maintainer: "Bea"}
	got := pypiMaintainerList(info)
	if len(got) != 2 || got[0] != "Ann" || got[1] != "Bea" {
		t.Fatalf("pypiMaintainerList = %v, want [Ann Bea] (author first)", got)
	}
}

func TestPyPIMaintainerListSingleFieldSet(t *testing.T) {
	if got := pypiMaintainerList(pypiInfo{Maintainer: "Bea"}); len(got) != 1 || got[0] != "Bea" {
		t.Fatalf("pypiMaintainerList = %v, want [Bea]", got)
	}
	if got := pypiMaintainerList(pypiInfo{Author: "Ann"}); len(got) != 1 || got[0] != "Ann" {
		t.Fatalf("pypiMaintainerList = %v, want [Ann]", got)
	}
}

func TestPyPIMaintainerListAllEmpty(t *testing.T) {
	if got := pypiMaintainerList(pypiInfo{}); len(got) != 0 {
		t.Fatalf("pypiMaintainerList = %v, want empty", got)
	}
}
