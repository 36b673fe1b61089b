package extract

import (
	"testing"
)

func names(descs []Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Capability.Name()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolve_PriorityOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", &fakeExtractor{name: "low"}, 1.0, "")
	reg.Register("text/plain", &fakeExtractor{name: "high"}, 5.0, "")
	reg.Register("text/plain", &fakeExtractor{name: "mid"}, 2.0, "")

	got := names(reg.Resolve("text/plain"))
	want := []string{"high", "mid", "low"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve order = %v, want %v", got, want)
	}
}

func TestResolve_TiePreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", &fakeExtractor{name: "a"}, 1.0, "")
	reg.Register("text/plain", &fakeExtractor{name: "b"}, 1.0, "")
	reg.Register("text/plain", &fakeExtractor{name: "c"}, 1.0, "")

	got := names(reg.Resolve("text/plain"))
	want := []string{"a", "b", "c"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve order = %v, want %v", got, want)
	}
}

func TestResolve_ThreeTiers(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/html", &fakeExtractor{name: "exact"}, 1.0, "")
	reg.Register("text/*", &fakeExtractor{name: "primary"}, 1.0, "")
	reg.Register(Wildcard, &fakeExtractor{name: "universal"}, 1.0, "")

	got := names(reg.Resolve("text/html"))
	want := []string{"exact", "primary", "universal"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve(text/html) = %v, want %v", got, want)
	}

	got = names(reg.Resolve("image/png"))
	want = []string{"universal"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve(image/png) = %v, want %v", got, want)
	}
}

func TestResolve_PriorityBeatsTier(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/html", &fakeExtractor{name: "exact-low"}, 1.0, "")
	reg.Register("text/*", &fakeExtractor{name: "primary-high"}, 5.0, "")

	got := names(reg.Resolve("text/html"))
	want := []string{"primary-high", "exact-low"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve order = %v, want %v", got, want)
	}
}

func TestResolve_DedupKeepsFirstTier(t *testing.T) {
	// The same extractor registered both exactly and as a fallback must
	// appear once, under its exact-tier priority.
	reg := NewRegistry()
	reg.Register("text/html", &fakeExtractor{name: "dual"}, 5.0, "")
	reg.Register(Wildcard, &fakeExtractor{name: "dual"}, 0.5, "")

	descs := reg.Resolve("text/html")
	if len(descs) != 1 {
		t.Fatalf("len(Resolve) = %d, want 1", len(descs))
	}
	if descs[0].Priority != 5.0 {
		t.Errorf("Priority = %v, want 5.0 from the exact tier", descs[0].Priority)
	}
}

func TestResolve_WildcardQuery(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Wildcard, &fakeExtractor{name: "universal"}, 1.0, "")
	reg.Register("text/plain", &fakeExtractor{name: "typed"}, 1.0, "")

	got := names(reg.Resolve(Wildcard))
	want := []string{"universal"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve(*/*) = %v, want %v", got, want)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", &fakeExtractor{name: "typed"}, 1.0, "")

	if got := reg.Resolve("video/mp4"); len(got) != 0 {
		t.Errorf("Resolve(video/mp4) = %v, want empty", names(got))
	}
}

func TestNames_DistinctSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", &fakeExtractor{name: "zeta"}, 1.0, "")
	reg.Register("text/*", &fakeExtractor{name: "alpha"}, 1.0, "")
	reg.Register(Wildcard, &fakeExtractor{name: "alpha"}, 0.5, "")

	got := reg.Names()
	want := []string{"alpha", "zeta"}
	if !equalStrings(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestAll_SortedAndAnnotated(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", &fakeExtractor{name: "txt", version: "2.1"}, 1.0, "")
	reg.Register("image/*", &fakeContentExtractor{fakeExtractor: fakeExtractor{name: "img"}}, 1.0, "")
	reg.Register("image/*", &fakeExtractor{name: "exif"}, 3.0, "png")

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("len(All) = %d, want 3", len(all))
	}

	if all[0].MIMEType != "image/*" || all[0].Name != "exif" {
		t.Errorf("All[0] = %s/%s, want image/* exif first (mime then priority desc)", all[0].MIMEType, all[0].Name)
	}
	if all[1].Name != "img" || !all[1].ContentCapable {
		t.Errorf("All[1] = %+v, want content-capable img", all[1])
	}
	if all[2].Name != "txt" || all[2].Version != "2.1" {
		t.Errorf("All[2] = %+v, want txt version 2.1", all[2])
	}
	if all[0].Subtype != "png" {
		t.Errorf("All[0].Subtype = %q, want %q", all[0].Subtype, "png")
	}
}
