// Package vcs publishes a rendered metadata tree to a branch of a git
// repository using the git CLI.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/config"
)

const binGit = "git"

// runner executes git in dir and returns its combined output.
type runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binGit, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return out.Bytes(), nil
}

// Result identifies the pushed commit.
type Result struct {
	Remote    string
	Branch    string
	Commit    string
	Unchanged bool // nothing differed from the branch head
}

// Publisher mirrors a work dir into a repository subdirectory and pushes it.
type Publisher struct {
	repoDir string
	remote  string
	branch  string
	subdir  string
	author  string
	logger  *zap.Logger
	git     runner
}

// NewPublisher creates a publisher for the repository in s.RepoDir.
func NewPublisher(s config.Git, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		repoDir: s.RepoDir,
		remote:  s.Remote,
		branch:  s.Branch,
		subdir:  s.Subdir,
		author:  s.Author,
		logger:  logger,
		git:     execGit,
	}
}

// Publish replaces the subdirectory with the contents of workDir, commits
// with message and pushes the branch.
func (p *Publisher) Publish(ctx context.Context, workDir, message string) (*Result, error) {
	if p.repoDir == "" || p.branch == "" {
		return nil, errors.New("git repo dir and branch are required")
	}
	if !filepath.IsLocal(p.subdir) {
		return nil, fmt.Errorf("git subdir %q must be a relative path inside the repository", p.subdir)
	}

	if _, err := p.git(ctx, p.repoDir, "checkout", "-B", p.branch); err != nil {
		return nil, err
	}

	target := filepath.Join(p.repoDir, p.subdir)
	if err := os.RemoveAll(target); err != nil {
		return nil, fmt.Errorf("clear %s: %w", target, err)
	}
	if err := copyTree(workDir, target); err != nil {
		return nil, err
	}

	if _, err := p.git(ctx, p.repoDir, "add", "-A", "--", p.subdir); err != nil {
		return nil, err
	}
	status, err := p.git(ctx, p.repoDir, "status", "--porcelain", "--", p.subdir)
	if err != nil {
		return nil, err
	}

	res := &Result{Remote: p.remote, Branch: p.branch}
	if len(bytes.TrimSpace(status)) == 0 {
		res.Unchanged = true
		p.logger.Info("no metadata changes to commit", zap.String("branch", p.branch))
	} else {
		args := []string{"commit", "-m", message}
		if p.author != "" {
			args = append(args, "--author", p.author)
		}
		if _, err := p.git(ctx, p.repoDir, args...); err != nil {
			return nil, err
		}
	}

	if _, err := p.git(ctx, p.repoDir, "push", "-u", p.remote, p.branch); err != nil {
		return nil, err
	}
	head, err := p.git(ctx, p.repoDir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	res.Commit = strings.TrimSpace(string(head))

	p.logger.Info("pushed metadata",
		zap.String("remote", p.remote),
		zap.String("branch", p.branch),
		zap.String("commit", res.Commit))
	return res, nil
}

// copyTree copies every regular file below src into dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	})
}
