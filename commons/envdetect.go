package commons

import (
	"context"
	"os"

	"github.com/aexvir/tap"
)

// ciVariables are set by the ci systems tap is commonly run on.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL", "TF_BUILD"}

// OnlyOnCI returns the task specified as argument only in the case
// the current environment is a known ci system.
// Otherwise it returns a noop task.
func OnlyOnCI(task tap.Task) tap.Task {
	if !IsCIEnv() {
		return noop
	}

	return task
}

// OnlyLocally returns the task specified as argument only in the case
// the current environment is a dev machine.
// Otherwise it returns a noop task.
func OnlyLocally(task tap.Task) tap.Task {
	if IsCIEnv() {
		return noop
	}

	return task
}

// IsCIEnv returns true if the current environment is a known ci system.
// Progress bars are disabled there since nobody watches them.
func IsCIEnv() bool {
	for _, name := range ciVariables {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func noop(_ context.Context) error { return nil }
