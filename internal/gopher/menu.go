package gopher

import (
	"strconv"
	"strings"
)

// foreignMarker prefixes selectors that point at non-Gopher resources
// (hURL convention). Such entries are dropped during parsing because a
// Gopher client cannot fetch them.
const foreignMarker = "url:"

// MenuEntry is one parsed line of a Gopher menu.
type MenuEntry struct {
	// Type classifies the referenced resource.
	Type ItemType

	// Display is the human-readable label. It plays no part in
	// addressing the resource.
	Display string

	// Locator is the remote address the entry points to.
	Locator Locator
}

// ParseMenu decodes a raw menu response into its entries, preserving the
// input line order (menu order is traversal order).
//
// Each line must split on tab into exactly four fields:
//
//	<type><display> TAB <selector> TAB <host> TAB <port>
//
// Lines that do not are silently dropped; the lone "." terminator and
// blank lines fall out this way. Entries with an empty selector, a
// foreign-protocol "URL:" selector, or a non-numeric port are dropped
// as well.
func ParseMenu(data []byte) []MenuEntry {
	var entries []MenuEntry

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")

		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		if fields[0] == "" {
			continue
		}

		itemType := ItemType(fields[0][0])
		display := fields[0][1:]
		selector := strings.TrimSpace(fields[1])
		host := strings.TrimSpace(fields[2])
		portStr := strings.TrimSpace(fields[3])

		if selector == "" || host == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(selector), foreignMarker) {
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			continue
		}

		entries = append(entries, MenuEntry{
			Type:    itemType,
			Display: display,
			Locator: Locator{Host: host, Selector: selector, Port: port},
		})
	}

	return entries
}

// IsMenu reports whether the response bytes parse as a menu, i.e. yield
// at least one valid entry. Used when probing a resource whose item type
// is unknown, such as the root of a crawl.
func IsMenu(data []byte) bool {
	return len(ParseMenu(data)) > 0
}
