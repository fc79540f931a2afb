package services

import (
	"testing"
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Ride{}, &models.Participation{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	storage.DB = db
}

func seedUser(t *testing.T, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com"}
	if err := storage.DB.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedRide(t *testing.T, creator models.User, date time.Time, status string) models.Ride {
	t.Helper()
	r := models.Ride{
		Title:       "Ride " + date.Format("2006-01-02"),
		Date:        date,
		StartTime:   "09:00",
		Departure:   "HQ",
		DistanceKM:  50,
		Level:       models.LevelTempo,
		Status:      status,
		CreatedByID: creator.ID,
	}
	if err := storage.DB.Create(&r).Error; err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return r
}

func seedParticipation(t *testing.T, ride models.Ride, user models.User, status string, km float64) {
	t.Helper()
	p := models.Participation{RideID: ride.ID, UserID: user.ID, Status: status, KM: km}
	if err := storage.DB.Create(&p).Error; err != nil {
		t.Fatalf("seed participation: %v", err)
	}
}

func TestLeaderboardTotalsAndOrdering(t *testing.T) {
	setupTestDB(t)

	year := time.Now().Year()
	alpha := seedUser(t, "alpha")
	bravo := seedUser(t, "bravo")

	r1 := seedRide(t, alpha, time.Date(year, 1, 10, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	r2 := seedRide(t, alpha, time.Date(year, 1, 17, 0, 0, 0, 0, time.Local), models.RideStatusClosed)

	// insertion order deliberately interleaved; the ordering must not depend on it
	seedParticipation(t, r1, bravo, models.ParticipationStatusFinished, 60)
	seedParticipation(t, r1, alpha, models.ParticipationStatusFinished, 50)
	seedParticipation(t, r2, alpha, models.ParticipationStatusFinished, 40)

	board, err := Leaderboard(&year, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(board))
	}
	if board[0].Username != "alpha" || board[0].Points != 90 || board[0].FinishedCount != 2 || board[0].Rank != 1 {
		t.Fatalf("row 0: got %+v", board[0])
	}
	if board[1].Username != "bravo" || board[1].Points != 60 || board[1].FinishedCount != 1 || board[1].Rank != 2 {
		t.Fatalf("row 1: got %+v", board[1])
	}

	if rank := MyRank(board, bravo.ID); rank != 2 {
		t.Fatalf("expected bravo rank 2, got %d", rank)
	}
	if rank := MyRank(board, 9999); rank != 0 {
		t.Fatalf("expected 0 for absent user, got %d", rank)
	}
}

func TestLeaderboardTieBreaksByFinishedCountThenUsername(t *testing.T) {
	setupTestDB(t)

	year := time.Now().Year()
	zed := seedUser(t, "zed")
	ann := seedUser(t, "ann")
	kim := seedUser(t, "kim")

	r1 := seedRide(t, ann, time.Date(year, 3, 1, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	r2 := seedRide(t, ann, time.Date(year, 3, 8, 0, 0, 0, 0, time.Local), models.RideStatusClosed)

	// equal points all around: ann and kim with one finish, zed with two
	seedParticipation(t, r1, zed, models.ParticipationStatusFinished, 30)
	seedParticipation(t, r2, zed, models.ParticipationStatusFinished, 30)
	seedParticipation(t, r1, kim, models.ParticipationStatusFinished, 60)
	seedParticipation(t, r2, ann, models.ParticipationStatusFinished, 60)

	board, err := Leaderboard(&year, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(board))
	}
	if board[0].Username != "zed" {
		t.Fatalf("expected zed first on finished count, got %s", board[0].Username)
	}
	// same points and count: lexicographic username
	if board[1].Username != "ann" || board[2].Username != "kim" {
		t.Fatalf("expected ann before kim, got %s / %s", board[1].Username, board[2].Username)
	}
}

func TestLeaderboardFilters(t *testing.T) {
	setupTestDB(t)

	year := time.Now().Year()
	rider := seedUser(t, "rider")

	current := seedRide(t, rider, time.Date(year, 5, 1, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	lastYear := seedRide(t, rider, time.Date(year-1, 5, 1, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	canceled := seedRide(t, rider, time.Date(year, 6, 1, 0, 0, 0, 0, time.Local), models.RideStatusCanceled)

	seedParticipation(t, current, rider, models.ParticipationStatusFinished, 50)
	seedParticipation(t, lastYear, rider, models.ParticipationStatusFinished, 80)
	// finished km on a canceled ride never counts
	seedParticipation(t, canceled, rider, models.ParticipationStatusFinished, 100)

	board, err := Leaderboard(&year, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Points != 50 || board[0].FinishedCount != 1 {
		t.Fatalf("season filter: got %+v", board)
	}

	prev := year - 1
	board, err = Leaderboard(&prev, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Points != 80 {
		t.Fatalf("previous season: got %+v", board)
	}

	// both non-canceled rides fall inside a 100-year trailing window and
	// collapse into one grouped row for the rider
	board, err = Leaderboard(nil, intPtr(36500))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Points != 130 || board[0].FinishedCount != 2 {
		t.Fatalf("window filter: got %+v", board)
	}
}

func TestLeaderboardLastDaysWindow(t *testing.T) {
	setupTestDB(t)

	rider := seedUser(t, "rider")
	recent := seedRide(t, rider, time.Now().AddDate(0, 0, -5), models.RideStatusClosed)
	old := seedRide(t, rider, time.Now().AddDate(0, 0, -40), models.RideStatusClosed)

	seedParticipation(t, recent, rider, models.ParticipationStatusFinished, 45.5)
	seedParticipation(t, old, rider, models.ParticipationStatusFinished, 80)

	board, err := Leaderboard(nil, intPtr(30))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Points != 45.5 || board[0].FinishedCount != 1 {
		t.Fatalf("last_days window: got %+v", board)
	}
}

func TestProfileTotalsAndSeasonTotal(t *testing.T) {
	setupTestDB(t)

	year := time.Now().Year()
	rider := seedUser(t, "rider")

	r1 := seedRide(t, rider, time.Date(year, 2, 1, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	r2 := seedRide(t, rider, time.Date(year-1, 2, 1, 0, 0, 0, 0, time.Local), models.RideStatusClosed)
	r3 := seedRide(t, rider, time.Date(year, 4, 1, 0, 0, 0, 0, time.Local), models.RideStatusOpen)

	seedParticipation(t, r1, rider, models.ParticipationStatusFinished, 50)
	seedParticipation(t, r2, rider, models.ParticipationStatusFinished, 30)
	seedParticipation(t, r3, rider, models.ParticipationStatusDNF, 0)

	totalKM, totalFinished, err := ProfileTotals(rider.ID)
	if err != nil {
		t.Fatalf("profile totals: %v", err)
	}
	if totalKM != 80 || totalFinished != 2 {
		t.Fatalf("expected 80/2, got %v/%d", totalKM, totalFinished)
	}

	seasonTotal, err := SeasonTotal(rider.ID, year)
	if err != nil {
		t.Fatalf("season total: %v", err)
	}
	if seasonTotal != 50 {
		t.Fatalf("expected season total 50, got %v", seasonTotal)
	}

	recentRides, err := RecentFinished(rider.ID, 20)
	if err != nil {
		t.Fatalf("recent finished: %v", err)
	}
	if len(recentRides) != 2 {
		t.Fatalf("expected 2 finished rides, got %d", len(recentRides))
	}
	if recentRides[0].Ride.ID != r1.ID {
		t.Fatalf("expected newest finished ride first")
	}
}

func intPtr(v int) *int { return &v }
