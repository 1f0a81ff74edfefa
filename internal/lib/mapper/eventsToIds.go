package mapper

import "github.com/KattyaCuevas/posts-service/internal/domain/models"

// EventsToIds collects ids of the events keeping the page order
func EventsToIds(events []models.Event) []string {
	length := len(events)
	res := make([]string, length)

	for i := 0; i < length; i++ {
		res[i] = events[i].Id
	}

	return res
}
