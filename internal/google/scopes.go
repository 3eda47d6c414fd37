package google

import (
	"fmt"

	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// Account names used by the briefing. Each account has its own scope set and
// its own cached token, so granting calendar access never implies mail access.
const (
	AccountCalendar = "calendar"
	AccountGmail    = "gmail"
)

// accountScopes maps an account name to the read-only scopes it requests.
var accountScopes = map[string][]string{
	AccountCalendar: {calendar.CalendarReadonlyScope},
	AccountGmail:    {gmail.GmailReadonlyScope},
}

// ScopesForAccount returns the OAuth scopes requested for a known account.
func ScopesForAccount(account string) ([]string, error) {
	scopes, ok := accountScopes[account]
	if !ok {
		return nil, fmt.Errorf("%w: unknown account %q", ErrInvalidAccount, account)
	}
	out := make([]string, len(scopes))
	copy(out, scopes)
	return out, nil
}

// Accounts returns the names of all accounts the briefing may authorize.
func Accounts() []string {
	return []string{AccountCalendar, AccountGmail}
}
