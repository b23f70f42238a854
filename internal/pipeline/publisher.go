package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/internal/deploy"
	"github.com/mrhapile/metadeploy/internal/vcs"
	"github.com/mrhapile/metadeploy/pkg/types"
)

// Publisher hands a finished bundle to its destination and returns where the
// result can be inspected.
type Publisher interface {
	Publish(ctx context.Context, bundle *types.BundleResult, message string) (string, error)
}

// NewPublisher returns the publisher selected by s.Publish.
func NewPublisher(s *config.Settings, httpClient *http.Client, logger *zap.Logger) (Publisher, error) {
	switch s.Publish {
	case config.PublishDeploy:
		return &deployPublisher{client: deploy.NewClient(s.Salesforce, s.APIVersion, httpClient, logger)}, nil
	case config.PublishGit:
		return &gitPublisher{publisher: vcs.NewPublisher(s.Git, logger)}, nil
	case config.PublishNone:
		return archiveOnly{}, nil
	}
	return nil, fmt.Errorf("unknown publish mode %q", s.Publish)
}

type deployPublisher struct {
	client *deploy.Client
}

func (p *deployPublisher) Publish(ctx context.Context, bundle *types.BundleResult, _ string) (string, error) {
	res, err := p.client.Deploy(ctx, bundle.ArchivePath)
	if err != nil {
		return "", err
	}
	return res.StatusURL, nil
}

type gitPublisher struct {
	publisher *vcs.Publisher
}

func (p *gitPublisher) Publish(ctx context.Context, bundle *types.BundleResult, message string) (string, error) {
	res, err := p.publisher.Publish(ctx, bundle.WorkDir, message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s@%s", res.Remote, res.Branch, res.Commit), nil
}

// archiveOnly leaves the archive on disk.
type archiveOnly struct{}

func (archiveOnly) Publish(_ context.Context, bundle *types.BundleResult, _ string) (string, error) {
	return bundle.ArchivePath, nil
}
