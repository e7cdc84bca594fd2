package devserver

import (
	"fmt"
	"time"

	"github.com/imkarma/taskboard/internal/store"
)

var seedUsers = []store.User{
	{ID: "1", Name: "Ada Lovelace"},
	{ID: "2", Name: "Grace Hopper"},
	{ID: "3", Name: "Ken Thompson"},
}

var seedTasks = []struct {
	message, priority, assignee string
	inDays                      int
}{
	{"Fix login redirect loop", "3", "1", 1},
	{"Review release notes", "2", "2", 3},
	{"Rotate staging credentials", "2", "", 5},
	{"Update team wiki", "1", "3", 7},
	{"Archive old sprint board", "0", "1", -2},
}

// Seed fills an empty store with sample users and tasks. A store that
// already has tasks is left alone.
func Seed(s *store.Store) error {
	existing, err := s.ListTasks()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, u := range seedUsers {
		if err := s.UpsertUser(u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	now := time.Now()
	for _, t := range seedTasks {
		due := now.AddDate(0, 0, t.inDays).Format("2006-1-2") + " 12:12:12"
		if _, err := s.CreateTask(t.message, t.priority, t.assignee, due); err != nil {
			return fmt.Errorf("seed task: %w", err)
		}
	}
	return nil
}
