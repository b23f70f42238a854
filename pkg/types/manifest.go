package types

// Manifest is the grouped inventory written to package.xml.
type Manifest struct {
	// Version is the platform API version placed in the footer.
	Version string `json:"version"`

	// Namespace is the XML namespace of the Package root element.
	Namespace string `json:"namespace"`

	// Groups are kept in first-seen order.
	Groups []ManifestGroup `json:"groups"`
}

// ManifestGroup lists the members of one metadata type. Members keep input
// order and may repeat.
type ManifestGroup struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// ManifestEntry is a single (group, member) pair.
type ManifestEntry struct {
	Group  string `json:"group"`
	Member string `json:"member"`
}

// Entries flattens the manifest group by group.
func (m Manifest) Entries() []ManifestEntry {
	var out []ManifestEntry
	for _, g := range m.Groups {
		for _, member := range g.Members {
			out = append(out, ManifestEntry{Group: g.Name, Member: member})
		}
	}
	return out
}

// Group returns the members recorded under name, or nil.
func (m Manifest) Group(name string) []string {
	for _, g := range m.Groups {
		if g.Name == name {
			return g.Members
		}
	}
	return nil
}

// FileEntry represents a single file inside the bundle.
type FileEntry struct {
	// Path is the relative path of the file inside the archive.
	Path string `json:"path"`

	// Size is the size of the file in bytes.
	Size int64 `json:"size"`

	// SHA256 is the checksum of the file content.
	SHA256 string `json:"sha256"`
}
