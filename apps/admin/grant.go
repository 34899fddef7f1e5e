package main

import (
	"context"

	"github.com/pkg/errors"
)

// setGrant toggles one course in the account's grant set. Granting checks
// that the course exists first; revoking does not, so dangling grants left
// behind by course deletions can still be cleaned up.
func (cli *commandLine) setGrant(email, courseID string, granted bool) error {
	ctx := context.Background()
	if granted {
		if _, err := cli.courseRepo.Get(ctx, courseID); err != nil {
			return errors.Wrapf(err, "checking course %q", courseID)
		}
	}
	return cli.accountSvc.SetCourseGrant(ctx, email, courseID, granted)
}
