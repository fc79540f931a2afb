package routes

import (
	"strconv"
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/services"
	"github.com/wauterstoon/TrevionTrappers/storage"
	"github.com/wauterstoon/TrevionTrappers/utils"

	"github.com/kataras/iris/v12"
)

// GetLeaderboard returns the ranked board for ?season= (defaults to the
// current year) or a trailing ?last_days= window, with the requester's own
// rank, a podium/rest split and the selectable season years.
func GetLeaderboard(ctx iris.Context) {
	currentYear := time.Now().Year()

	season := currentYear
	if raw := ctx.URLParam("season"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			season = v
		}
	}

	var lastDays *int
	if raw := ctx.URLParam("last_days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			lastDays = &v
		}
	}

	board, err := services.Leaderboard(&season, lastDays)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	myRank := 0
	if userID, ok := utils.ActorID(ctx); ok {
		myRank = services.MyRank(board, userID)
	}

	years := make([]int, 0, 5)
	for y := currentYear - 4; y <= currentYear; y++ {
		years = append(years, y)
	}

	podium := board
	var rest []services.LeaderboardEntry
	if len(board) > 3 {
		podium = board[:3]
		rest = board[3:]
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"board":  board,
			"podium": podium,
			"rest":   rest,
		},
		"meta": iris.Map{
			"season":   season,
			"lastDays": lastDays,
			"myRank":   myRank,
			"years":    years,
		},
		"links": iris.Map{},
	})
}

// Dashboard returns the next 6 upcoming non-canceled rides and the top 8 of
// the current-season leaderboard.
func Dashboard(ctx iris.Context) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	var upcoming []models.Ride
	err := storage.DB.Preload("CreatedBy").
		Where("date >= ? AND status <> ?", today, models.RideStatusCanceled).
		Order("date ASC, start_time ASC").
		Limit(6).
		Find(&upcoming).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	season := now.Year()
	board, err := services.Leaderboard(&season, nil)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if len(board) > 8 {
		board = board[:8]
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"upcoming":    upcoming,
			"leaderboard": board,
		},
		"meta":  iris.Map{"season": season},
		"links": iris.Map{},
	})
}
