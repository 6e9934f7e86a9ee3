package gopher

// ItemType is the single-character classification that prefixes every
// menu line. The canonical values come from RFC 1436; the lowercase and
// punctuation types below are widely used extensions.
type ItemType byte

// Item types from RFC 1436 plus common extensions.
const (
	// TypeTextFile is a plain text file ('0').
	TypeTextFile = ItemType('0')

	// TypeMenu is a submenu / directory listing ('1').
	TypeMenu = ItemType('1')

	// TypeCSO is a CSO phone-book server ('2').
	TypeCSO = ItemType('2')

	// TypeError is an error report from the server ('3').
	TypeError = ItemType('3')

	// TypeBinHex is a BinHexed Macintosh file ('4').
	TypeBinHex = ItemType('4')

	// TypeDOSArchive is a DOS binary archive ('5').
	TypeDOSArchive = ItemType('5')

	// TypeUUEncoded is a uuencoded file ('6').
	TypeUUEncoded = ItemType('6')

	// TypeSearch is an index-search server ('7'). Fetching one requires
	// a query string, which a mirror never has.
	TypeSearch = ItemType('7')

	// TypeTelnet is a telnet session pointer ('8').
	TypeTelnet = ItemType('8')

	// TypeBinary is a generic binary file ('9'). The client must read
	// until the server closes the connection.
	TypeBinary = ItemType('9')

	// TypeGIF is a GIF image ('g').
	TypeGIF = ItemType('g')

	// TypeImage is an image in an unspecified format ('I').
	TypeImage = ItemType('I')

	// TypeHTML is an HTML document ('h').
	TypeHTML = ItemType('h')

	// TypeInfo is an informational message ('i'). Info lines carry no
	// fetchable resource; servers fill the selector with placeholders.
	TypeInfo = ItemType('i')

	// TypeAudio is an audio file ('s').
	TypeAudio = ItemType('s')

	// TypePNG is a PNG image ('p').
	TypePNG = ItemType('p')

	// TypeDocument is a document file such as PDF ('d').
	TypeDocument = ItemType('d')
)

// IsMenu reports whether the item is a submenu (directory listing).
func (t ItemType) IsMenu() bool {
	return t == TypeMenu
}

// IsInfo reports whether the item is a non-fetchable informational line.
func (t ItemType) IsInfo() bool {
	return t == TypeInfo
}

// IsError reports whether the item is a server error line.
func (t ItemType) IsError() bool {
	return t == TypeError
}

// IsSearch reports whether the item is an index-search server.
func (t ItemType) IsSearch() bool {
	return t == TypeSearch
}

// Fetchable reports whether the item points at a resource a mirror can
// retrieve. Info lines are annotations, error lines are diagnostics, and
// search servers and terminal sessions need interactive input.
func (t ItemType) Fetchable() bool {
	switch t {
	case TypeInfo, TypeError, TypeSearch, TypeTelnet, TypeCSO:
		return false
	}
	return true
}

// String returns the item type as a one-character string.
func (t ItemType) String() string {
	return string(rune(t))
}
