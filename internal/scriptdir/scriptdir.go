package scriptdir

import (
	"errors"
	"os"
	"path/filepath"
)

// maxLinkDepth bounds the manual symlink walk to avoid link cycles.
const maxLinkDepth = 40

// errTooManyLinks is returned when the manual walk exceeds maxLinkDepth.
var errTooManyLinks = errors.New("too many levels of symbolic links")

// resolver attempts to canonicalize an invocation path.
// A nil error means the returned path is usable.
type resolver func(path string) (string, error)

// resolvers returns the ordered canonicalization strategies.
// The first one that succeeds wins; callers fall back to the raw
// invocation path when all of them fail.
func resolvers() []resolver {
	return []resolver{
		resolveEvalSymlinks,
		resolveLinkWalk,
	}
}

// Resolve returns the absolute, cleaned directory containing the real file
// behind the invocation path. The path may be relative, absolute, or a chain
// of symlinks. Resolution never fails outright: when no strategy succeeds,
// the directory of the raw invocation path is returned as a degraded result.
func Resolve(invocation string) string {
	resolved := invocation

	for _, resolve := range resolvers() {
		canonical, err := resolve(invocation)
		if err != nil {
			continue
		}

		resolved = canonical

		break
	}

	return absDir(filepath.Dir(resolved))
}

// resolveEvalSymlinks canonicalizes every component of the path.
func resolveEvalSymlinks(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}

// resolveLinkWalk follows only the leaf symlink chain, leaving intermediate
// directory links untouched. It is the degraded alternative when full
// canonicalization fails, e.g. on an unreadable intermediate component.
func resolveLinkWalk(path string) (string, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxLinkDepth; i++ {
		info, err := os.Lstat(current)
		if err != nil {
			return "", err
		}

		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}

		target, err := os.Readlink(current)
		if err != nil {
			return "", err
		}

		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}

		current = target
	}

	return "", errTooManyLinks
}

// absDir makes the directory absolute, resolving ".." segments.
// When even that fails, the cleaned input is returned as-is.
func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}

	return abs
}
