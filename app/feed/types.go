package feed

// Entry is one item of a parsed feed document. Optional fields are empty
// strings when the document omits them.
type Entry struct {
	Title       string
	Link        string
	GUID        string
	PubDate     string // raw publication date as written in the document
	Description string
	Categories  []string
}
