// Package calendar reads upcoming events from the Google Calendar API.
//
// The client authenticates with the cached token of the "calendar" account
// (see package google) and only needs read-only access.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, tokenProvider)
//	if err != nil {
//	    return err
//	}
//
//	// Next 24 hours on the primary calendar, one line per event
//	lines, err := client.UpcomingEvents(ctx, time.Now())
package calendar
