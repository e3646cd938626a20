// Package gen provides utility functions for generating values.
package gen

import (
	"github.com/google/uuid"
)

// RunID returns a random identifier for one invocation of the tool.
func RunID() string {
	return uuid.NewString()
}

// TaskID derives a stable identifier for a task from its submission ID and file name.
func TaskID(submissionID, fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(submissionID+"|"+fileName)).String()
}
