package bundler

import (
	"path"
	"unicode"
	"unicode/utf8"

	"github.com/mrhapile/metadeploy/pkg/types"
)

const (
	ManifestFile        = "package.xml"
	ObjectsDir          = "objects"
	PermissionSetsDir   = "permissionsets"
	LabelsDir           = "labels"
	LayoutsDir          = "layouts"
	GlobalValueSetsDir  = "globalValueSets"
	ReportTypesDir      = "reportTypes"
	ClassesDir          = "classes"
	TriggersDir         = "triggers"
	PagesDir            = "pages"
	ComponentsDir       = "components"
	LightningDir        = "lwc"
	CustomLabelsFile    = "CustomLabels.labels-meta.xml"
	defaultEntityName   = "Unnamed"
	defaultObjectName   = "UnknownObject"
	descriptorExtension = "-meta.xml"
)

// target is one file an entity renders to.
type target struct {
	path    string // slash-separated, relative to the work dir
	content string
}

// entityTargets returns the files for e. ok is false when the type has no
// rendering rule.
func entityTargets(e types.MetadataEntity) (out []target, ok bool) {
	t, known := types.ParseEntityType(e.Type)
	if !known {
		return nil, false
	}

	name := e.Name
	if name == "" {
		name = defaultEntityName
	}
	objectName := e.ObjectName
	if objectName == "" {
		objectName = defaultObjectName
	}

	switch t {
	case types.CustomObject:
		return single(path.Join(ObjectsDir, name+".object"), e.Content), true
	case types.PermissionSet:
		return single(path.Join(PermissionSetsDir, name+".permissionset-meta.xml"), e.Content), true
	case types.CustomLabel:
		return single(path.Join(LabelsDir, CustomLabelsFile), e.Content), true
	case types.PageLayout, types.Layout:
		return single(path.Join(LayoutsDir, name+".layout-meta.xml"), e.Content), true
	case types.PicklistValueSet, types.GlobalValueSet:
		return single(path.Join(GlobalValueSetsDir, name+".globalValueSet-meta.xml"), e.Content), true
	case types.ReportType:
		return single(path.Join(ReportTypesDir, name+".reportType-meta.xml"), e.Content), true
	case types.CustomField:
		return single(path.Join(ObjectsDir, objectName, "fields", name+".field-meta.xml"), e.Content), true
	case types.ValidationRule:
		return single(path.Join(ObjectsDir, objectName, "validationRules", name+".validationRule-meta.xml"), e.Content), true
	case types.ApexClass:
		return withDescriptor(path.Join(ClassesDir, name+".cls"), e), true
	case types.ApexTrigger:
		return withDescriptor(path.Join(TriggersDir, name+".trigger"), e), true
	case types.ApexPage:
		return withDescriptor(path.Join(PagesDir, name+".page"), e), true
	case types.ApexComponent:
		return withDescriptor(path.Join(ComponentsDir, name+".component"), e), true
	case types.LightningComponentBundle:
		dir := lowerFirst(name)
		base := path.Join(LightningDir, dir, dir)
		return []target{
			{path: base + ".html", content: e.HTML},
			{path: base + ".css", content: e.CSS},
			{path: base + ".js", content: e.JS},
			{path: base + ".js" + descriptorExtension, content: e.MetaXML},
		}, true
	}
	return nil, false
}

func single(p, content string) []target {
	return []target{{path: p, content: content}}
}

// withDescriptor renders a code file and, when supplied, its sibling
// descriptor sharing the base name.
func withDescriptor(p string, e types.MetadataEntity) []target {
	out := single(p, e.Content)
	if e.MetaContent != "" {
		out = append(out, target{path: p + descriptorExtension, content: e.MetaContent})
	}
	return out
}

// lowerFirst lower-cases the first rune and leaves the rest untouched.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Layout holds the planned files of one render, keyed by relative path.
// A later entity targeting the same path replaces the earlier content but
// keeps its position.
type Layout struct {
	paths []string
	files map[string][]byte
}

func newLayout() *Layout {
	return &Layout{files: make(map[string][]byte)}
}

func (l *Layout) addFile(p string, content []byte) {
	if _, seen := l.files[p]; !seen {
		l.paths = append(l.paths, p)
	}
	l.files[p] = content
}

func (l *Layout) renderedFiles() []types.RenderedFile {
	out := make([]types.RenderedFile, 0, len(l.paths))
	for _, p := range l.paths {
		out = append(out, types.RenderedFile{Path: p, Content: l.files[p]})
	}
	return out
}
