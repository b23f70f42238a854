// Package assistant asks a remote AI assistant to describe a change request
// as a batch of metadata entities.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/pkg/bundler"
	"github.com/mrhapile/metadeploy/pkg/types"
)

// Assistant turns a prompt into an entity batch.
type Assistant interface {
	Generate(ctx context.Context, prompt string) (*types.Batch, error)
}

// ErrNoGenerated is returned when the reply lacks the generated payload.
var ErrNoGenerated = errors.New("the 'generated' field is missing in the AI response")

const promptTemplate = `Summary: %s
Description: %s
Generate a structured JSON response for Salesforce Metadata generation.
Use this schema:
{
    "metadata": [
        {
            "type": "CustomObject",
            "name": "string",
            "content": "string"
        },
        {
            "type": "PermissionSet",
            "name": "string",
            "content": "string"
        }
    ]
}
Supported types: %s.
Code types (ApexClass, ApexTrigger, ApexPage, ApexComponent) may add "metaContent".
LightningComponentBundle entries use "html", "css", "js" and "metaXml" instead of "content".
CustomField and ValidationRule entries set "objectName".
Only include the metadata that is explicitly described in the story.
Populate the response based on the story details and metadata requirements.
`

// BuildPrompt renders the request sent to the assistant.
func BuildPrompt(summary, description string) string {
	names := make([]string, len(types.EntityTypes))
	for i, t := range types.EntityTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf(promptTemplate, summary, description, strings.Join(names, ", "))
}

// decodeGenerated decodes the JSON document carried in a reply, tolerating a
// surrounding markdown code fence.
func decodeGenerated(generated string) (*types.Batch, error) {
	s := strings.TrimSpace(generated)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	batch, err := bundler.DecodeBatch([]byte(s), bundler.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("error parsing generated JSON: %w", err)
	}
	return batch, nil
}

// New builds the assistant selected by s.Provider.
func New(ctx context.Context, s config.Assistant, opts Options) (Assistant, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch s.Provider {
	case config.ProviderConversation:
		return NewConversationClient(s, opts), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, s.APIKey, s.Model, opts)
	}
	return nil, fmt.Errorf("unknown assistant provider %q", s.Provider)
}
