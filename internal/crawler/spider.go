package crawler

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/nao1215/gophermirror/internal/gopher"
)

// Fetcher retrieves the raw bytes of one Gopher resource.
// The protocol package provides the production implementation; tests
// substitute in-memory fakes.
type Fetcher interface {
	Fetch(ctx context.Context, loc gopher.Locator) ([]byte, error)
}

// Saver persists the raw bytes of one resource at its mapped local
// path. It returns the path, whether bytes were written (false means
// the file existed and clobbering is off), and any persistence error.
type Saver interface {
	Save(loc gopher.Locator, isMenu bool, data []byte) (string, bool, error)
}

// TypeFilter selects which kinds of menu entries are followed during
// recursion.
type TypeFilter int

const (
	// FetchAll follows every fetchable entry.
	FetchAll TypeFilter = iota

	// FetchMenusOnly follows only submenu entries.
	FetchMenusOnly

	// FetchFilesOnly follows only non-menu entries.
	FetchFilesOnly
)

// Spider walks a Gopher subtree and mirrors it to local storage.
//
// Design decision: We use an explicit work list rather than recursing
// on the call stack because:
//  1. Menu graphs on real servers can be arbitrarily deep
//  2. The (locator, depth) pairs make the traversal state inspectable
//  3. The visited set and depth bound live in one place
type Spider struct {
	// fetcher retrieves resources from the network.
	fetcher Fetcher

	// store persists fetched resources.
	store Saver

	// recurse enables descending into submenus at all. When false only
	// the starting resource is fetched.
	recurse bool

	// maxDepth limits how many menu hops the crawl may take from the
	// start. 0 means only the starting resource.
	maxDepth int

	// spanHosts allows following entries whose host differs from the
	// crawl's starting host.
	spanHosts bool

	// typeFilter selects menus, files, or both during recursion.
	typeFilter TypeFilter

	// allowAscent permits entries whose selector escapes the selector
	// of the menu that listed them. Off by default to stop crafted
	// menus from walking up the directory tree.
	allowAscent bool

	// delay is the politeness pause between consecutive fetches.
	// It never applies before the first request of a run.
	delay time.Duration

	// logger is used for structured debug/warn output.
	logger *slog.Logger
}

// Option configures a Spider.
type Option func(*Spider)

// WithRecursion enables or disables descending into submenus.
func WithRecursion(recurse bool) Option {
	return func(s *Spider) {
		s.recurse = recurse
	}
}

// WithMaxDepth sets the maximum number of menu hops from the start.
func WithMaxDepth(depth int) Option {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithSpanHosts allows the crawl to leave its starting host.
func WithSpanHosts(span bool) Option {
	return func(s *Spider) {
		s.spanHosts = span
	}
}

// WithTypeFilter restricts recursion to menus or to files.
func WithTypeFilter(filter TypeFilter) Option {
	return func(s *Spider) {
		s.typeFilter = filter
	}
}

// WithAllowAscent permits entries that point above the menu that
// listed them.
func WithAllowAscent(allow bool) Option {
	return func(s *Spider) {
		s.allowAscent = allow
	}
}

// WithDelay sets the pause between consecutive fetches.
func WithDelay(d time.Duration) Option {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider using the given fetcher and saver.
func NewSpider(fetcher Fetcher, store Saver, opts ...Option) *Spider {
	s := &Spider{
		fetcher: fetcher,
		store:   store,
		recurse: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// resourceKind says how a work item's response should be interpreted.
type resourceKind int

const (
	// kindProbe means the type is unknown (the crawl root): the
	// response is a menu iff it parses into at least one valid entry.
	kindProbe resourceKind = iota

	// kindMenu means the listing entry declared a submenu.
	kindMenu

	// kindFile means the listing entry declared a leaf resource.
	kindFile
)

// workItem is one pending fetch on the crawl's explicit work list.
type workItem struct {
	loc      gopher.Locator
	depth    int
	kind     resourceKind
	itemType gopher.ItemType
}

// Mirror crawls the subtree rooted at start and returns the run result.
// hint is the item type from the start URL, or zero to probe: a typeless
// root is treated as a menu iff its response parses as one.
//
// Per-locator failures are recorded on the result and never abort the
// run; the returned error is non-nil only when the context is cancelled.
func (s *Spider) Mirror(ctx context.Context, start gopher.Locator, hint gopher.ItemType) (*Result, error) {
	result := NewResult(start)
	defer result.finish()

	// Crawl state is local to this invocation: the visited set breaks
	// cycles and duplicate listings, the stack holds the frontier.
	visited := make(map[gopher.Locator]bool)
	stack := []workItem{{loc: start, depth: s.maxDepth, kind: rootKind(hint), itemType: hint}}
	first := true

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[item.loc] {
			result.SkippedVisited++
			continue
		}
		visited[item.loc] = true

		if !first && s.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		first = false

		s.logger.Debug("fetching", "url", item.loc.String(), "depth", item.depth)

		data, err := s.fetcher.Fetch(ctx, item.loc)
		if err != nil {
			s.logger.Warn("fetch failed", "url", item.loc.String(), "error", err)
			result.addFailure(item.loc, err)
			result.addResource(item.loc, item.itemType, nil, "", StatusFailed)
			continue
		}

		var entries []gopher.MenuEntry
		isMenu := item.kind == kindMenu
		if item.kind == kindProbe {
			entries = gopher.ParseMenu(data)
			isMenu = len(entries) > 0
		}

		result.Fetched++
		result.BytesFetched += int64(len(data))
		itemType := item.itemType
		if isMenu {
			result.MenusFetched++
			itemType = gopher.TypeMenu
		} else {
			result.FilesFetched++
			if itemType == 0 || itemType.IsMenu() {
				itemType = gopher.TypeTextFile
			}
		}

		savedPath, written, err := s.store.Save(item.loc, isMenu, data)
		switch {
		case err != nil:
			s.logger.Warn("save failed", "url", item.loc.String(), "error", err)
			result.addFailure(item.loc, err)
			result.addResource(item.loc, itemType, data, "", StatusFailed)
		case written:
			result.Saved++
			result.addResource(item.loc, itemType, data, savedPath, StatusSaved)
		default:
			result.SkippedExisting++
			result.addResource(item.loc, itemType, data, savedPath, StatusSkipped)
		}

		if !isMenu || !s.recurse || item.depth <= 0 {
			continue
		}

		if entries == nil {
			entries = gopher.ParseMenu(data)
		}

		// Children are pushed in reverse so the depth-first pop order
		// matches the menu's display order.
		children := s.selectChildren(result, start, item, entries)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return result, nil
}

// selectChildren applies the recursion filters to a menu's entries and
// returns the work items to enqueue, in menu order.
func (s *Spider) selectChildren(result *Result, start gopher.Locator, parent workItem, entries []gopher.MenuEntry) []workItem {
	var children []workItem

	for _, entry := range entries {
		if !entry.Type.Fetchable() {
			result.Filtered++
			continue
		}
		if s.typeFilter == FetchMenusOnly && !entry.Type.IsMenu() {
			result.Filtered++
			continue
		}
		if s.typeFilter == FetchFilesOnly && entry.Type.IsMenu() {
			result.Filtered++
			continue
		}
		if !s.spanHosts && !strings.EqualFold(entry.Locator.Host, start.Host) {
			result.Filtered++
			continue
		}
		if !s.allowAscent && !withinSubtree(parent.loc.Selector, entry.Locator.Selector) {
			result.Filtered++
			continue
		}

		kind := kindFile
		if entry.Type.IsMenu() {
			kind = kindMenu
		}
		children = append(children, workItem{
			loc:      entry.Locator,
			depth:    parent.depth - 1,
			kind:     kind,
			itemType: entry.Type,
		})
	}

	return children
}

// rootKind maps a start URL's type hint onto a resource kind.
func rootKind(hint gopher.ItemType) resourceKind {
	switch {
	case hint == 0:
		return kindProbe
	case hint.IsMenu():
		return kindMenu
	default:
		return kindFile
	}
}

// withinSubtree reports whether a child selector stays at or below the
// menu selector that listed it. Both selectors are cleaned as absolute
// paths first, so ".." segments cannot sneak past the prefix check.
func withinSubtree(parentSelector, childSelector string) bool {
	parent := path.Clean("/" + parentSelector)
	if parent == "/" {
		return true
	}

	child := path.Clean("/" + childSelector)
	return child == parent || strings.HasPrefix(child, parent+"/")
}
