package version

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func gitStub(exactMatchErr error, describe string, describeErr error) gitFunc {
	return func(args ...string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("no git arguments")
		}
		switch args[0] {
		case "rev-parse":
			return ".git", nil
		case "describe":
			for _, a := range args {
				if a == "--exact-match" {
					return "", exactMatchErr
				}
			}
			return describe, describeErr
		}
		return "", fmt.Errorf("unexpected git subcommand %q", args[0])
	}
}

func gitNotARepo(...string) (string, error) {
	return "", fmt.Errorf("not a git repository")
}

func TestResolveOutsideGitRepo(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.1.0", resolve("0.1.0", gitNotARepo))
}

func TestResolveOnReleaseTag(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.1.0", resolve("0.1.0", gitStub(nil, "", nil)))
}

func TestResolveCommitsAfterTag(t *testing.T) {
	t.Parallel()
	git := gitStub(fmt.Errorf("no tag"), "v0.1.0-3-gabcdef", nil)
	require.Equal(t, "0.1.0-3-gabcdef", resolve("0.1.0", git))
}

func TestResolveDirtyWorkingTree(t *testing.T) {
	t.Parallel()
	git := gitStub(fmt.Errorf("no tag"), "v0.1.0-3-gabcdef-dirty", nil)
	require.Equal(t, "0.1.0-3-gabcdef-dirty", resolve("0.1.0", git))
}

func TestResolveNoTagsAtAll(t *testing.T) {
	t.Parallel()
	git := gitStub(fmt.Errorf("no tag"), "abcdef", nil)
	require.Equal(t, "0.1.0-abcdef", resolve("0.1.0", git))
}

func TestResolveDescribeFailure(t *testing.T) {
	t.Parallel()
	git := gitStub(fmt.Errorf("no tag"), "", fmt.Errorf("describe failed"))
	require.Equal(t, "0.1.0", resolve("0.1.0", git))
}

func TestResolveEmptyBase(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.0.0", resolve("", gitNotARepo))
}
