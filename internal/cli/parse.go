package cli

import (
	"strings"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/errors"
)

// parseDependencyArg parses a command-line dependency argument:
//
//	groupId:artifactId[:extension[:classifier]]:version[@scope]
//
// Example: "org.apache.commons:commons-lang3:3.14.0@compile"
func parseDependencyArg(arg string) (artifact.Dependency, error) {
	coords, scope, _ := strings.Cut(arg, "@")
	coord, err := artifact.Parse(coords)
	if err != nil {
		return artifact.Dependency{}, err
	}
	if err := errors.ValidateGroupID(coord.GroupID); err != nil {
		return artifact.Dependency{}, err
	}
	if err := errors.ValidateArtifactID(coord.ArtifactID); err != nil {
		return artifact.Dependency{}, err
	}
	if strings.ContainsAny(scope, "@:/ ") {
		return artifact.Dependency{}, errors.New(errors.ErrCodeInvalidRequest, "bad scope %q", scope)
	}
	return artifact.NewDependency(coord, scope), nil
}

// parseDependencyArgs parses all positional arguments.
func parseDependencyArgs(args []string) ([]artifact.Dependency, error) {
	deps := make([]artifact.Dependency, 0, len(args))
	for _, arg := range args {
		dep, err := parseDependencyArg(arg)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// parseRepoFlag parses a --repo flag value of the form "id=url".
func parseRepoFlag(value string) (id, url string, err error) {
	id, url, ok := strings.Cut(value, "=")
	if !ok || id == "" || url == "" {
		return "", "", errors.New(errors.ErrCodeInvalidRequest,
			"bad --repo value %q (expected id=url)", value)
	}
	if err := errors.ValidateRepositoryID(id); err != nil {
		return "", "", err
	}
	if err := errors.ValidateURL(url); err != nil {
		return "", "", err
	}
	return id, url, nil
}
