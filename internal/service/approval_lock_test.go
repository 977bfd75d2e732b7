package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApprovalLockPolicyDeadline(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	policy := NewApprovalLockPolicy(kst)
	week := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)

	require.Equal(t, time.Date(2025, 12, 2, 17, 0, 0, 0, kst), policy.Deadline(week))
	require.False(t, policy.IsLocked(week, time.Date(2025, 12, 2, 16, 59, 0, 0, kst)))
	require.False(t, policy.IsLocked(week, time.Date(2025, 12, 2, 17, 0, 0, 0, kst)))
	require.True(t, policy.IsLocked(week, time.Date(2025, 12, 2, 17, 1, 0, 0, kst)))
}

func TestApprovalLockPolicyNormalisesToMonday(t *testing.T) {
	policy := NewApprovalLockPolicy(nil)
	wednesday := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 12, 2, 17, 0, 0, 0, time.UTC), policy.Deadline(wednesday))
}
