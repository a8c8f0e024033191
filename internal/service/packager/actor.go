package packager

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies who produced a release, for the audit trail in logs and spans.
type Actor struct {
	Hostname string
	Username string
}

// DetectActor gathers host and user information of the current process.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
