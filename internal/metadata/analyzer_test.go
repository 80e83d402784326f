package metadata

import (
	"testing"
)

func TestExtOfHandlesDotsAndNoExtension(t *testing.T) {
	cases := map[string]string{
		"/rec/show.ts":      ".ts",
		"/rec/show.name.ts": ".ts",
		"/rec/noext":        "",
		"/rec.dir/show":     "",
		"show.chapter.txt":  ".txt",
	}
	for path, want := range cases {
		if got := extOf(path); got != want {
			t.Errorf("extOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestChapterAndPSISidecarPaths(t *testing.T) {
	video := "/rec/20260731-2000_News.ts"
	if got, want := chapterSidecarPath(video), "/rec/20260731-2000_News.chapter.txt"; got != want {
		t.Errorf("chapterSidecarPath = %q, want %q", got, want)
	}
	if got, want := psiArchiveSidecarPath(video), "/rec/20260731-2000_News.psc"; got != want {
		t.Errorf("psiArchiveSidecarPath = %q, want %q", got, want)
	}
}
