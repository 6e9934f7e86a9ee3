package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nao1215/gophermirror/internal/gopher"
	"github.com/nao1215/gophermirror/internal/storage"
)

// fakeFetcher serves canned responses from memory and records the
// order in which locators were requested.
type fakeFetcher struct {
	responses map[gopher.Locator][]byte
	failures  map[gopher.Locator]error
	order     []gopher.Locator
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[gopher.Locator][]byte),
		failures:  make(map[gopher.Locator]error),
	}
}

func (f *fakeFetcher) add(loc gopher.Locator, data string) {
	f.responses[loc] = []byte(data)
}

func (f *fakeFetcher) fail(loc gopher.Locator, err error) {
	f.failures[loc] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, loc gopher.Locator) ([]byte, error) {
	f.order = append(f.order, loc)
	if err := f.failures[loc]; err != nil {
		return nil, err
	}
	data, ok := f.responses[loc]
	if !ok {
		return nil, fmt.Errorf("no response configured for %s", loc)
	}
	return data, nil
}

// fakeSaver records saves in memory.
type fakeSaver struct {
	saved map[string][]byte
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{saved: make(map[string][]byte)}
}

func (s *fakeSaver) Save(loc gopher.Locator, isMenu bool, data []byte) (string, bool, error) {
	path := storage.LocalPath("mirror", loc, isMenu)
	s.saved[path] = data
	return path, true, nil
}

// loc is a shorthand constructor for test locators on the default host.
func loc(selector string) gopher.Locator {
	return gopher.NewLocator("example.org", selector, 70)
}

// menuLine renders one menu line in wire format.
func menuLine(itemType gopher.ItemType, display, selector, host string, port int) string {
	return fmt.Sprintf("%s%s\t%s\t%s\t%d\r\n", itemType, display, selector, host, port)
}

// TestSpiderMirror tests the traversal algorithm.
func TestSpiderMirror(t *testing.T) {
	t.Parallel()

	t.Run("mirrors a menu and its children in menu order", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+
			menuLine(gopher.TypeMenu, "Sub", "/sub", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "B", "/b.txt", "example.org", 70)+
			".\r\n")
		fetcher.add(loc("/a.txt"), "file a")
		fetcher.add(loc("/sub"), menuLine(gopher.TypeTextFile, "C", "/sub/c.txt", "example.org", 70)+".\r\n")
		fetcher.add(loc("/sub/c.txt"), "file c")
		fetcher.add(loc("/b.txt"), "file b")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), 0)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 5 {
			t.Errorf("expected 5 fetches, got %d", result.Fetched)
		}
		if result.MenusFetched != 2 || result.FilesFetched != 3 {
			t.Errorf("expected 2 menus and 3 files, got %d and %d",
				result.MenusFetched, result.FilesFetched)
		}
		if result.Saved != 5 {
			t.Errorf("expected 5 saves, got %d", result.Saved)
		}

		// Depth-first in menu order: root, a.txt, sub, sub/c.txt, b.txt.
		wantOrder := []string{"", "/a.txt", "/sub", "/sub/c.txt", "/b.txt"}
		if len(fetcher.order) != len(wantOrder) {
			t.Fatalf("expected %d fetches, got %d: %v", len(wantOrder), len(fetcher.order), fetcher.order)
		}
		for i, sel := range wantOrder {
			if fetcher.order[i].Selector != sel {
				t.Errorf("fetch %d: expected selector %q, got %q", i, sel, fetcher.order[i].Selector)
			}
		}
	})

	t.Run("typeless root that does not parse as a menu is saved as a file", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc("/plain.txt"), "just text, no menu lines")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc("/plain.txt"), 0)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.FilesFetched != 1 || result.MenusFetched != 0 {
			t.Errorf("expected a single file fetch, got %+v", result)
		}
		wantPath := storage.LocalPath("mirror", loc("/plain.txt"), false)
		if _, ok := saver.saved[wantPath]; !ok {
			t.Errorf("expected file saved at %q, saved: %v", wantPath, saver.saved)
		}
	})

	t.Run("menus are saved under gophermap", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeInfo, "banner", "/", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		if _, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu); err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		wantPath := storage.LocalPath("mirror", loc(""), true)
		if _, ok := saver.saved[wantPath]; !ok {
			t.Errorf("expected menu saved at %q, saved: %v", wantPath, saver.saved)
		}
	})

	t.Run("terminates on cyclic menus and fetches each locator once", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		// Root lists itself and a child that lists the root again.
		fetcher.add(loc("/"), menuLine(gopher.TypeMenu, "Self", "/", "example.org", 70)+
			menuLine(gopher.TypeMenu, "Sub", "/sub", "example.org", 70)+".\r\n")
		fetcher.add(loc("/sub"), menuLine(gopher.TypeMenu, "Back", "/", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(10), WithAllowAscent(true))
		result, err := spider.Mirror(context.Background(), loc("/"), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 2 {
			t.Errorf("expected 2 fetches, got %d", result.Fetched)
		}
		if result.SkippedVisited == 0 {
			t.Error("expected the cycle edges to be counted as visited skips")
		}

		seen := map[string]int{}
		for _, l := range fetcher.order {
			seen[l.Selector]++
		}
		for sel, n := range seen {
			if n != 1 {
				t.Errorf("selector %q fetched %d times", sel, n)
			}
		}
	})

	t.Run("depth zero fetches only the start", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(0))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 1 {
			t.Errorf("expected only the start to be fetched, got %d fetches", result.Fetched)
		}
	})

	t.Run("depth bound stops descent beyond n menu hops", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeMenu, "L1", "/l1", "example.org", 70)+".\r\n")
		fetcher.add(loc("/l1"), menuLine(gopher.TypeMenu, "L2", "/l1/l2", "example.org", 70)+".\r\n")
		fetcher.add(loc("/l1/l2"), menuLine(gopher.TypeMenu, "L3", "/l1/l2/l3", "example.org", 70)+".\r\n")
		fetcher.add(loc("/l1/l2/l3"), ".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(2))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		// Start + /l1 + /l1/l2; /l1/l2/l3 is 3 hops away.
		if result.Fetched != 3 {
			t.Errorf("expected 3 fetches, got %d: %v", result.Fetched, fetcher.order)
		}
		for _, l := range fetcher.order {
			if l.Selector == "/l1/l2/l3" {
				t.Error("locator beyond the depth bound was fetched")
			}
		}
	})

	t.Run("recursion disabled fetches only the start", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeMenu, "Sub", "/sub", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithRecursion(false), WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 1 {
			t.Errorf("expected 1 fetch, got %d", result.Fetched)
		}
	})

	t.Run("menus-only filter skips file entries", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+
			menuLine(gopher.TypeMenu, "Sub", "/sub", "example.org", 70)+".\r\n")
		fetcher.add(loc("/sub"), ".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5), WithTypeFilter(FetchMenusOnly))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		for _, l := range fetcher.order {
			if l.Selector == "/a.txt" {
				t.Error("file entry was fetched despite menus-only filter")
			}
		}
		if result.Filtered == 0 {
			t.Error("expected the file entry to be counted as filtered")
		}
	})

	t.Run("files-only filter skips submenu entries", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+
			menuLine(gopher.TypeMenu, "Sub", "/sub", "example.org", 70)+".\r\n")
		fetcher.add(loc("/a.txt"), "file a")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5), WithTypeFilter(FetchFilesOnly))
		_, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		for _, l := range fetcher.order {
			if l.Selector == "/sub" {
				t.Error("submenu entry was fetched despite files-only filter")
			}
		}
	})

	t.Run("host scope keeps the crawl on the starting host", func(t *testing.T) {
		t.Parallel()

		foreign := gopher.NewLocator("other.example.net", "/x", 70)
		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "Away", "/x", "other.example.net", 70)+
			menuLine(gopher.TypeTextFile, "Here", "/here.txt", "example.org", 70)+".\r\n")
		fetcher.add(foreign, "foreign")
		fetcher.add(loc("/here.txt"), "local")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		for _, l := range fetcher.order {
			if l.Host == "other.example.net" {
				t.Error("foreign host was fetched with span-hosts off")
			}
		}
		if result.Filtered == 0 {
			t.Error("expected the foreign entry to be counted as filtered")
		}

		// With span-hosts on, the foreign entry is followed.
		fetcher2 := newFakeFetcher()
		fetcher2.responses = fetcher.responses
		spider = NewSpider(fetcher2, newFakeSaver(), WithMaxDepth(5), WithSpanHosts(true))
		if _, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu); err != nil {
			t.Fatalf("mirror failed: %v", err)
		}
		found := false
		for _, l := range fetcher2.order {
			if l.Host == "other.example.net" {
				found = true
			}
		}
		if !found {
			t.Error("foreign host was not fetched with span-hosts on")
		}
	})

	t.Run("ascension filter blocks selectors above the listing menu", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc("/sub"), menuLine(gopher.TypeTextFile, "In", "/sub/in.txt", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "Up", "/other/secret.txt", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "DotDot", "/sub/../../etc/passwd", "example.org", 70)+".\r\n")
		fetcher.add(loc("/sub/in.txt"), "inside")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc("/sub"), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 2 {
			t.Errorf("expected 2 fetches (menu and in.txt), got %d: %v", result.Fetched, fetcher.order)
		}
		if result.Filtered != 2 {
			t.Errorf("expected 2 filtered entries, got %d", result.Filtered)
		}

		// With ascent allowed, the sideways entry is followed.
		fetcher2 := newFakeFetcher()
		fetcher2.responses = fetcher.responses
		fetcher2.add(gopher.NewLocator("example.org", "/other/secret.txt", 70), "sideways")
		fetcher2.add(gopher.NewLocator("example.org", "/etc/passwd", 70), "cleaned")
		spider = NewSpider(fetcher2, newFakeSaver(), WithMaxDepth(5), WithAllowAscent(true))
		result, err = spider.Mirror(context.Background(), loc("/sub"), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}
		if result.Filtered != 0 {
			t.Errorf("expected no filtered entries with ascent allowed, got %d", result.Filtered)
		}
	})

	t.Run("one child failure never stops the siblings", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "B", "/b.txt", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "C", "/c.txt", "example.org", 70)+".\r\n")
		fetcher.add(loc("/a.txt"), "a")
		fetcher.fail(loc("/b.txt"), errors.New("connection refused"))
		fetcher.add(loc("/c.txt"), "c")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if len(result.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %d", len(result.Failures))
		}
		if result.Fetched != 3 {
			t.Errorf("expected 3 successful fetches, got %d", result.Fetched)
		}

		fetched := map[string]bool{}
		for _, l := range fetcher.order {
			fetched[l.Selector] = true
		}
		if !fetched["/c.txt"] {
			t.Error("sibling after the failure was not attempted")
		}
	})

	t.Run("duplicate entries are fetched once", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+
			menuLine(gopher.TypeTextFile, "A again", "/a.txt", "example.org", 70)+".\r\n")
		fetcher.add(loc("/a.txt"), "a")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 2 {
			t.Errorf("expected 2 fetches, got %d", result.Fetched)
		}
		if result.SkippedVisited != 1 {
			t.Errorf("expected 1 visited skip, got %d", result.SkippedVisited)
		}
	})

	t.Run("info error and search entries are never fetched", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeInfo, "banner", "/fake", "example.org", 70)+
			menuLine(gopher.TypeError, "oops", "/err", "example.org", 70)+
			menuLine(gopher.TypeSearch, "find", "/search", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		result, err := spider.Mirror(context.Background(), loc(""), gopher.TypeMenu)
		if err != nil {
			t.Fatalf("mirror failed: %v", err)
		}

		if result.Fetched != 1 {
			t.Errorf("expected only the menu itself to be fetched, got %d", result.Fetched)
		}
		if result.Filtered != 3 {
			t.Errorf("expected 3 filtered entries, got %d", result.Filtered)
		}
	})

	t.Run("no delay before the first request", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc("/only.txt"), "single resource")
		saver := newFakeSaver()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5), WithDelay(500*time.Millisecond))

		started := time.Now()
		if _, err := spider.Mirror(context.Background(), loc("/only.txt"), gopher.TypeTextFile); err != nil {
			t.Fatalf("mirror failed: %v", err)
		}
		if elapsed := time.Since(started); elapsed >= 500*time.Millisecond {
			t.Errorf("single-fetch run waited the politeness delay: %v", elapsed)
		}
	})

	t.Run("cancelled context stops the crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher()
		fetcher.add(loc(""), menuLine(gopher.TypeTextFile, "A", "/a.txt", "example.org", 70)+".\r\n")
		saver := newFakeSaver()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spider := NewSpider(fetcher, saver, WithMaxDepth(5))
		if _, err := spider.Mirror(ctx, loc(""), gopher.TypeMenu); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestSpiderClobber tests the clobber policy end to end with the real
// storage writer.
func TestSpiderClobber(t *testing.T) {
	t.Parallel()

	t.Run("clobber off preserves existing files across runs", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		fetcher := newFakeFetcher()
		fetcher.add(loc("/doc.txt"), "first run")

		spider := NewSpider(fetcher, storage.NewWriter(root), WithMaxDepth(0))
		if _, err := spider.Mirror(context.Background(), loc("/doc.txt"), gopher.TypeTextFile); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		fetcher.add(loc("/doc.txt"), "second run")
		result, err := spider.Mirror(context.Background(), loc("/doc.txt"), gopher.TypeTextFile)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if result.SkippedExisting != 1 {
			t.Errorf("expected 1 existing-file skip, got %d", result.SkippedExisting)
		}

		got := readFile(t, storage.LocalPath(root, loc("/doc.txt"), false))
		if got != "first run" {
			t.Errorf("existing file was modified: %q", got)
		}
	})

	t.Run("clobber on overwrites across runs", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		fetcher := newFakeFetcher()
		fetcher.add(loc("/doc.txt"), "first run")

		spider := NewSpider(fetcher, storage.NewWriter(root, storage.WithClobber(true)), WithMaxDepth(0))
		if _, err := spider.Mirror(context.Background(), loc("/doc.txt"), gopher.TypeTextFile); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		fetcher.add(loc("/doc.txt"), "second run")
		if _, err := spider.Mirror(context.Background(), loc("/doc.txt"), gopher.TypeTextFile); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		got := readFile(t, storage.LocalPath(root, loc("/doc.txt"), false))
		if got != "second run" {
			t.Errorf("file was not overwritten: %q", got)
		}
	})
}

// TestWithinSubtree tests the ascension containment rule.
func TestWithinSubtree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parent string
		child  string
		want   bool
	}{
		{"", "/anything", true},
		{"/", "/anything", true},
		{"/sub", "/sub/file.txt", true},
		{"/sub", "/sub", true},
		{"/sub", "/subother", false},
		{"/sub", "/other", false},
		{"/sub", "/", false},
		{"/sub", "/sub/../../etc", false},
		{"/a/b", "/a/b/c/d", true},
		{"/a/b", "/a", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.parent, tt.child), func(t *testing.T) {
			t.Parallel()

			if got := withinSubtree(tt.parent, tt.child); got != tt.want {
				t.Errorf("withinSubtree(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

// readFile reads a file or fails the test.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
