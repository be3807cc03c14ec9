package sauce

import "os"

type ciProvider struct {
	detect, refName, sha, repo string
}

var ciProviders = []ciProvider{
	{detect: "GITHUB_ACTIONS", refName: "GITHUB_REF_NAME", sha: "GITHUB_SHA", repo: "GITHUB_REPOSITORY"},
	{detect: "GITLAB_CI", refName: "CI_COMMIT_REF_NAME", sha: "CI_COMMIT_SHA", repo: "CI_PROJECT_PATH"},
	{detect: "CIRCLECI", refName: "CIRCLE_BRANCH", sha: "CIRCLE_SHA1", repo: "CIRCLE_REPOSITORY_URL"},
	{detect: "JENKINS_URL", refName: "GIT_BRANCH", sha: "GIT_COMMIT", repo: "GIT_URL"},
	{detect: "BITBUCKET_BUILD_NUMBER", refName: "BITBUCKET_BRANCH", sha: "BITBUCKET_COMMIT", repo: "BITBUCKET_REPO_FULL_NAME"},
}

// DetectCI returns the pipeline details of a known CI provider, or nil when
// not running in CI.
func DetectCI() *CI {
	for _, p := range ciProviders {
		if os.Getenv(p.detect) == "" {
			continue
		}
		ref := os.Getenv(p.refName)
		return &CI{
			RefName:    ref,
			CommitSHA:  os.Getenv(p.sha),
			Repository: os.Getenv(p.repo),
			Branch:     ref,
		}
	}
	return nil
}
