package scheduler

import "context"

const JobExpireInviteCodes = "expire_invite_codes"

// ExpireInviteCodesJob marks overdue PENDING invite codes as EXPIRED in one bulk
// update. Redemption re-checks expiry on its own, so a missed run only delays
// the status change.
func (s *Scheduler) ExpireInviteCodesJob(ctx context.Context) (int64, error) {
	return s.invites.ExpirePending(ctx, s.clock.Now())
}
