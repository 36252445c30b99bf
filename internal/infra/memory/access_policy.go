package memory

import (
	"context"
	"sync"

	"quizzy-service/internal/domain"
)

// AccessList is an allowlist-backed access policy. Published public quizzes
// are open to everyone; private quizzes require an invitation entry; the
// creator always has access, including to drafts.
type AccessList struct {
	mu      sync.RWMutex
	invited map[int64]map[string]struct{}
}

func NewAccessList() *AccessList {
	return &AccessList{invited: make(map[int64]map[string]struct{})}
}

// Invite grants a user access to a private quiz.
func (a *AccessList) Invite(quizID int64, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	users, ok := a.invited[quizID]
	if !ok {
		users = make(map[string]struct{})
		a.invited[quizID] = users
	}
	users[userID] = struct{}{}
}

func (a *AccessList) MayView(_ context.Context, userID string, quiz domain.Quiz) bool {
	if userID == quiz.CreatorID {
		return true
	}
	if !quiz.IsPublished {
		return false
	}
	if quiz.Visibility == domain.VisibilityPublic {
		return true
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.invited[quiz.ID][userID]
	return ok
}

func (a *AccessList) MayAttempt(ctx context.Context, userID string, quiz domain.Quiz) bool {
	return a.MayView(ctx, userID, quiz)
}
