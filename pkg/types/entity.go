package types

// EntityType selects the rendering rule for a MetadataEntity.
type EntityType string

const (
	CustomObject             EntityType = "CustomObject"
	PermissionSet            EntityType = "PermissionSet"
	CustomLabel              EntityType = "CustomLabel"
	PageLayout               EntityType = "PageLayout"
	Layout                   EntityType = "Layout"
	PicklistValueSet         EntityType = "PicklistValueSet"
	GlobalValueSet           EntityType = "GlobalValueSet"
	ReportType               EntityType = "ReportType"
	CustomField              EntityType = "CustomField"
	ValidationRule           EntityType = "ValidationRule"
	ApexClass                EntityType = "ApexClass"
	ApexTrigger              EntityType = "ApexTrigger"
	ApexPage                 EntityType = "ApexPage"
	ApexComponent            EntityType = "ApexComponent"
	LightningComponentBundle EntityType = "LightningComponentBundle"
)

// EntityTypes lists every tag the renderer knows, in declaration order.
var EntityTypes = []EntityType{
	CustomObject,
	PermissionSet,
	CustomLabel,
	PageLayout,
	Layout,
	PicklistValueSet,
	GlobalValueSet,
	ReportType,
	CustomField,
	ValidationRule,
	ApexClass,
	ApexTrigger,
	ApexPage,
	ApexComponent,
	LightningComponentBundle,
}

// ParseEntityType reports whether s names a supported entity type.
func ParseEntityType(s string) (EntityType, bool) {
	for _, t := range EntityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return EntityType(s), false
}

// MetadataEntity is one unit of configuration produced by the assistant.
// Name uniqueness is not enforced.
type MetadataEntity struct {
	Type       string `json:"type" yaml:"type"`
	Name       string `json:"name" yaml:"name"`
	Content    string `json:"content,omitempty" yaml:"content,omitempty"`
	ObjectName string `json:"objectName,omitempty" yaml:"objectName,omitempty"`

	// MetaContent is the descriptor written next to code types.
	MetaContent string `json:"metaContent,omitempty" yaml:"metaContent,omitempty"`

	// Component payloads, one per sibling file.
	HTML    string `json:"html,omitempty" yaml:"html,omitempty"`
	CSS     string `json:"css,omitempty" yaml:"css,omitempty"`
	JS      string `json:"js,omitempty" yaml:"js,omitempty"`
	MetaXML string `json:"metaXml,omitempty" yaml:"metaXml,omitempty"`
}

// Batch is the decoded assistant reply.
type Batch struct {
	Metadata []MetadataEntity `json:"metadata" yaml:"metadata"`
}

// RenderedFile is one file produced from an entity. Path is relative to the work dir.
type RenderedFile struct {
	Path    string
	Content []byte
}

// BundleResult represents the output of a successful bundling operation.
type BundleResult struct {
	WorkDir     string      // Directory the entities were rendered into
	ArchivePath string      // The absolute path to the generated archive file
	SizeBytes   int64       // Size of the archive in bytes
	Files       []FileEntry // Rendered files plus package.xml, in write order
	Skipped     []string    // Entity types that had no rendering rule
	Manifest    Manifest    // The manifest written to package.xml
}
