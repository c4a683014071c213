package quiz

import (
	"testing"
	"time"
)

func TestRankScores_WindowAndOrdering(t *testing.T) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -leaderboardWindowDays)

	attempts := []scoredAttempt{
		{Email: "amy@example.com", Score: 100, CreatedAt: now.AddDate(0, 0, -1)},
		{Email: "amy@example.com", Score: 80, CreatedAt: now.AddDate(0, 0, -3)},
		{Email: "ben@example.com", Score: 90, CreatedAt: now.AddDate(0, 0, -6)},
		{Email: "cal@example.com", Score: 70, CreatedAt: now.AddDate(0, 0, -2)},
		// Outside the seven-day window: must not count toward ben.
		{Email: "ben@example.com", Score: 100, CreatedAt: now.AddDate(0, 0, -10)},
	}

	entries := rankScores(attempts, cutoff, 5)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	want := []struct {
		email string
		total int
	}{
		{"amy@example.com", 180},
		{"ben@example.com", 90},
		{"cal@example.com", 70},
	}
	for i, w := range want {
		if entries[i].Email != w.email || entries[i].TotalScore != w.total {
			t.Errorf("entry %d = %s/%d, want %s/%d",
				i, entries[i].Email, entries[i].TotalScore, w.email, w.total)
		}
	}
}

func TestRankScores_TiesBreakByEmail(t *testing.T) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -leaderboardWindowDays)

	attempts := []scoredAttempt{
		{Email: "zoe@example.com", Score: 50, CreatedAt: now},
		{Email: "abe@example.com", Score: 50, CreatedAt: now},
	}

	entries := rankScores(attempts, cutoff, 5)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Email != "abe@example.com" || entries[1].Email != "zoe@example.com" {
		t.Errorf("tie order = [%s %s], want email ascending", entries[0].Email, entries[1].Email)
	}
}

func TestRankScores_Limit(t *testing.T) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -leaderboardWindowDays)

	var attempts []scoredAttempt
	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com", "g@x.com"}
	for i, email := range emails {
		attempts = append(attempts, scoredAttempt{Email: email, Score: (i + 1) * 10, CreatedAt: now})
	}

	entries := rankScores(attempts, cutoff, leaderboardSize)
	if len(entries) != leaderboardSize {
		t.Fatalf("entries = %d, want %d", len(entries), leaderboardSize)
	}
	if entries[0].Email != "g@x.com" || entries[0].TotalScore != 70 {
		t.Errorf("top entry = %s/%d, want g@x.com/70", entries[0].Email, entries[0].TotalScore)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].TotalScore > entries[i-1].TotalScore {
			t.Errorf("entries not descending at %d: %d > %d", i, entries[i].TotalScore, entries[i-1].TotalScore)
		}
	}
}

func TestRankScores_EmptyWindow(t *testing.T) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -leaderboardWindowDays)

	attempts := []scoredAttempt{
		{Email: "old@example.com", Score: 100, CreatedAt: now.AddDate(0, 0, -30)},
	}

	entries := rankScores(attempts, cutoff, 5)
	if entries == nil {
		t.Fatal("expected an empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}
