package gitrepo

import (
	"errors"
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant        = "ssh://"
	httpsProtocolPrefixConstant      = "https://"
	gitUserPrefixConstant            = "git@"
	scpPathDelimiterConstant         = ":"
	pathSeparatorConstant            = "/"
	gitSuffixConstant                = ".git"
	ownerRepositoryTemplateConstant  = "%s/%s"
	ownerRepoNotDetectedMessageConst = "owner repository not detected"
)

// ErrOwnerRepositoryNotDetected indicates a remote URL that does not expose an owner/repository pair.
var ErrOwnerRepositoryNotDetected = errors.New(ownerRepoNotDetectedMessageConst)

// ParseOwnerRepository extracts the owner/repository slug from an ssh, scp-style, or https remote URL.
func ParseOwnerRepository(remoteURL string) (string, error) {
	trimmedRemote := strings.TrimSpace(remoteURL)
	if len(trimmedRemote) == 0 {
		return "", ErrOwnerRepositoryNotDetected
	}

	var repositoryPath string
	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		withoutScheme := strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant)
		hostSplitIndex := strings.Index(withoutScheme, pathSeparatorConstant)
		if hostSplitIndex == -1 {
			return "", ErrOwnerRepositoryNotDetected
		}
		repositoryPath = withoutScheme[hostSplitIndex+1:]
	case strings.HasPrefix(trimmedRemote, gitUserPrefixConstant):
		pathSplitIndex := strings.Index(trimmedRemote, scpPathDelimiterConstant)
		if pathSplitIndex == -1 {
			return "", ErrOwnerRepositoryNotDetected
		}
		repositoryPath = trimmedRemote[pathSplitIndex+1:]
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		withoutScheme := strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant)
		hostSplitIndex := strings.Index(withoutScheme, pathSeparatorConstant)
		if hostSplitIndex == -1 {
			return "", ErrOwnerRepositoryNotDetected
		}
		repositoryPath = withoutScheme[hostSplitIndex+1:]
	default:
		return "", ErrOwnerRepositoryNotDetected
	}

	repositoryPath = strings.TrimSuffix(repositoryPath, gitSuffixConstant)
	pathSegments := strings.Split(repositoryPath, pathSeparatorConstant)
	if len(pathSegments) < 2 {
		return "", ErrOwnerRepositoryNotDetected
	}
	ownerName := pathSegments[0]
	repositoryName := pathSegments[1]
	if len(ownerName) == 0 || len(repositoryName) == 0 {
		return "", ErrOwnerRepositoryNotDetected
	}
	return fmt.Sprintf(ownerRepositoryTemplateConstant, ownerName, repositoryName), nil
}
