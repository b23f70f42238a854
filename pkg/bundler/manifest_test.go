package bundler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhapile/metadeploy/pkg/bundler"
	"github.com/mrhapile/metadeploy/pkg/types"
)

func TestBuildManifest_GroupAndMemberOrder(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "PermissionSet", Name: "B"},
		{Type: "ReportType", Name: "R"},
		{Type: "PermissionSet", Name: "A"},
		{Type: "PermissionSet", Name: "B"},
	})
	require.NoError(t, err)

	// Duplicate members are preserved on purpose; see DESIGN.md.
	want := []types.ManifestGroup{
		{Name: "PermissionSet", Members: []string{"B", "A", "B"}},
		{Name: "ReportType", Members: []string{"R"}},
	}
	if diff := cmp.Diff(want, m.Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildManifest_ObjectSuffix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "Employee", want: "Employee__c"},
		{name: "Employee__c", want: "Employee__c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := bundler.BuildManifest([]types.MetadataEntity{
				{Type: "CustomObject", Name: tt.name, Content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"/>`},
			})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, m.Group("CustomObject"))
		})
	}
}

func TestBuildManifest_CustomSuffixAndVersion(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Thing", Content: `<CustomObject xmlns="urn:test"><fields><fullName>F</fullName></fields></CustomObject>`},
	},
		bundler.WithObjectSuffix("__x"),
		bundler.WithAPIVersion("60.0"),
		bundler.WithNamespace("urn:test"),
	)
	require.NoError(t, err)

	assert.Equal(t, "60.0", m.Version)
	assert.Equal(t, []string{"Thing__x"}, m.Group("CustomObject"))
	assert.Equal(t, []string{"Thing__x.F"}, m.Group(bundler.GroupCustomField))
}

func TestBuildManifest_NestedExtraction(t *testing.T) {
	content := `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata">
  <fields><fullName>Name__c</fullName><type>Text</type></fields>
  <validationRules><fullName>Name_Required</fullName></validationRules>
  <fields><fullName>Email__c</fullName><type>Email</type></fields>
</CustomObject>`

	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Employee", Content: content},
	})
	require.NoError(t, err)

	want := []types.ManifestEntry{
		{Group: "CustomObject", Member: "Employee__c"},
		{Group: "CustomField", Member: "Employee__c.Name__c"},
		{Group: "CustomField", Member: "Employee__c.Email__c"},
		{Group: "ValidationRule", Member: "Employee__c.Name_Required"},
	}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildManifest_TrailingCommentsAndPrefixes(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<sf:CustomObject xmlns:sf="http://soap.sforce.com/2006/04/metadata">
  <sf:fields><sf:fullName>Name__c</sf:fullName></sf:fields>
</sf:CustomObject>
<!-- generated -->
`
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Employee", Content: content},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee__c.Name__c"}, m.Group(bundler.GroupCustomField))
}

// fullName text is copied as written, surrounding whitespace included.
func TestBuildManifest_FullNameVerbatim(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Employee", Content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><fields><fullName> Name__c</fullName></fields></CustomObject>`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee__c. Name__c"}, m.Group(bundler.GroupCustomField))
}

func TestBuildManifest_IgnoresElementsOutsideNamespace(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Plain", Content: `<CustomObject><fields><fullName>F</fullName></fields></CustomObject>`},
	})
	require.NoError(t, err)
	assert.Nil(t, m.Group(bundler.GroupCustomField))
}

func TestBuildManifest_ScopedEntities(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomField", Name: "Email__c", ObjectName: "Employee__c"},
		{Type: "ValidationRule", Name: "Loose"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee__c.Email__c"}, m.Group("CustomField"))
	assert.Equal(t, []string{"Loose"}, m.Group("ValidationRule"))
}

func TestBuildManifest_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "truncated", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><fields>`},
		{name: "field without fullName", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><fields><type>Text</type></fields></CustomObject>`},
		{name: "rule with empty fullName", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><validationRules><fullName></fullName></validationRules></CustomObject>`},
		{name: "truncated element after root", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><fields><fullName>A</fullName></fields></CustomObject><fields><fullName`},
		{name: "second root element", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"></CustomObject><Second/>`},
		{name: "text after root", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"></CustomObject>trailing`},
		{name: "undeclared prefix", content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><sf:fields><fullName>A</fullName></sf:fields></CustomObject>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bundler.BuildManifest([]types.MetadataEntity{
				{Type: "PermissionSet", Name: "Before"},
				{Type: "CustomObject", Name: "Bad", Content: tt.content},
			})
			var malformed *bundler.MalformedContentError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "Bad__c", malformed.Entity)
		})
	}
}

func TestManifestBuilder_FailedAddRecordsNothing(t *testing.T) {
	mb := bundler.NewManifestBuilder()
	require.NoError(t, mb.Add(types.MetadataEntity{Type: "PermissionSet", Name: "P"}))
	require.Error(t, mb.Add(types.MetadataEntity{
		Type:    "CustomObject",
		Name:    "Half",
		Content: `<CustomObject xmlns="http://soap.sforce.com/2006/04/metadata"><fields><fullName>Ok</fullName></fields><fields/></CustomObject>`,
	}))

	m := mb.Build()
	assert.Equal(t, []types.ManifestEntry{{Group: "PermissionSet", Member: "P"}}, m.Entries())
}

func TestEncodeManifest(t *testing.T) {
	m, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Employee", Content: employeeObject},
		{Type: "PermissionSet", Name: "EmployeeManagement"},
		{Type: "CustomLabel", Name: "A&B"},
	})
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
  <types>
    <members>Employee__c</members>
    <name>CustomObject</name>
  </types>
  <types>
    <members>Employee__c.Email</members>
    <name>CustomField</name>
  </types>
  <types>
    <members>Employee__c.Email_Unique</members>
    <name>ValidationRule</name>
  </types>
  <types>
    <members>EmployeeManagement</members>
    <name>PermissionSet</name>
  </types>
  <types>
    <members>A&amp;B</members>
    <name>CustomLabel</name>
  </types>
  <version>57.0</version>
</Package>`
	assert.Equal(t, want, string(bundler.EncodeManifest(m)))

	// Same input, same bytes.
	again, err := bundler.BuildManifest([]types.MetadataEntity{
		{Type: "CustomObject", Name: "Employee", Content: employeeObject},
		{Type: "PermissionSet", Name: "EmployeeManagement"},
		{Type: "CustomLabel", Name: "A&B"},
	})
	require.NoError(t, err)
	assert.Equal(t, bundler.EncodeManifest(m), bundler.EncodeManifest(again))
}

func TestEncodeManifest_Empty(t *testing.T) {
	m, err := bundler.BuildManifest(nil)
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
  <version>57.0</version>
</Package>`, string(bundler.EncodeManifest(m)))
}
