package services

import (
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/storage"
)

// LeaderboardEntry is one ranked row of the seasonal leaderboard.
type LeaderboardEntry struct {
	UserID        uint    `json:"userID"`
	Username      string  `json:"username"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Points        float64 `json:"points"`
	FinishedCount int     `json:"finishedCount"`
	Rank          int     `json:"rank"`
}

// Leaderboard aggregates finished km per user. Source rows are FINISHED
// participations on open or closed rides (canceled rides never count).
// season restricts ride dates to one calendar year, lastDays to a trailing
// window from today; both filters may be nil. Ordering is points desc,
// finished count desc, username asc, so the output is a deterministic
// total order regardless of row insertion order.
func Leaderboard(season *int, lastDays *int) ([]LeaderboardEntry, error) {
	q := storage.DB.Model(&models.Participation{}).
		Select("users.id AS user_id, users.username, users.first_name, users.last_name, COALESCE(SUM(participations.km), 0) AS points, COUNT(participations.id) AS finished_count").
		Joins("JOIN rides ON rides.id = participations.ride_id AND rides.deleted_at IS NULL").
		Joins("JOIN users ON users.id = participations.user_id").
		Where("participations.status = ?", models.ParticipationStatusFinished).
		Where("rides.status IN ?", []string{models.RideStatusOpen, models.RideStatusClosed})

	if season != nil {
		yearStart := time.Date(*season, time.January, 1, 0, 0, 0, 0, time.Local)
		q = q.Where("rides.date >= ? AND rides.date < ?", yearStart, yearStart.AddDate(1, 0, 0))
	}
	if lastDays != nil {
		today := time.Now()
		cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, -*lastDays)
		q = q.Where("rides.date >= ?", cutoff)
	}

	var board []LeaderboardEntry
	err := q.Group("users.id, users.username, users.first_name, users.last_name").
		Order("points DESC, finished_count DESC, users.username ASC").
		Scan(&board).Error
	if err != nil {
		return nil, err
	}

	for i := range board {
		board[i].Rank = i + 1
	}
	return board, nil
}

// MyRank returns the 1-based position of userID on the board, or 0 if absent.
func MyRank(board []LeaderboardEntry, userID uint) int {
	for _, row := range board {
		if row.UserID == userID {
			return row.Rank
		}
	}
	return 0
}

// ProfileTotals sums all-time finished km and ride count for one user.
func ProfileTotals(userID uint) (totalKM float64, totalFinished int64, err error) {
	row := struct {
		TotalKM       float64
		TotalFinished int64
	}{}
	err = storage.DB.Model(&models.Participation{}).
		Select("COALESCE(SUM(km), 0) AS total_km, COUNT(id) AS total_finished").
		Where("user_id = ? AND status = ?", userID, models.ParticipationStatusFinished).
		Scan(&row).Error
	return row.TotalKM, row.TotalFinished, err
}

// SeasonTotal sums finished km for one user within one calendar year.
func SeasonTotal(userID uint, season int) (float64, error) {
	yearStart := time.Date(season, time.January, 1, 0, 0, 0, 0, time.Local)
	row := struct{ Total float64 }{}
	err := storage.DB.Model(&models.Participation{}).
		Select("COALESCE(SUM(participations.km), 0) AS total").
		Joins("JOIN rides ON rides.id = participations.ride_id AND rides.deleted_at IS NULL").
		Where("participations.user_id = ? AND participations.status = ?", userID, models.ParticipationStatusFinished).
		Where("rides.date >= ? AND rides.date < ?", yearStart, yearStart.AddDate(1, 0, 0)).
		Scan(&row).Error
	return row.Total, err
}

// RecentFinished returns a user's most recent finished participations with
// the ride loaded, newest ride first.
func RecentFinished(userID uint, limit int) ([]models.Participation, error) {
	var parts []models.Participation
	err := storage.DB.
		Joins("JOIN rides ON rides.id = participations.ride_id AND rides.deleted_at IS NULL").
		Where("participations.user_id = ? AND participations.status = ?", userID, models.ParticipationStatusFinished).
		Order("rides.date DESC, rides.start_time DESC").
		Limit(limit).
		Preload("Ride").
		Find(&parts).Error
	return parts, err
}
