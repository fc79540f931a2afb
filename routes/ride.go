package routes

import (
	"encoding/json"
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/storage"
	"github.com/wauterstoon/TrevionTrappers/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm/clause"
)

type RideInput struct {
	Title           string      `json:"title" validate:"required,max=150"`
	Date            string      `json:"date" validate:"required"`      // 2006-01-02
	StartTime       string      `json:"startTime" validate:"required"` // HH:MM
	Departure       string      `json:"departure" validate:"required,max=150"`
	DistanceKM      json.Number `json:"distanceKm" validate:"required"`
	Level           string      `json:"level" validate:"omitempty,oneof=EASY TEMPO SPORTIVE"`
	Notes           string      `json:"notes"`
	MaxParticipants *uint       `json:"maxParticipants" validate:"omitempty,gt=0"`
	Status          string      `json:"status" validate:"omitempty,oneof=OPEN CLOSED CANCELED"`
}

// applyTo validates the date/time/distance fields and copies the input onto
// the ride. Returns a message suited for the actor on bad input.
func (in *RideInput) applyTo(ride *models.Ride) (string, bool) {
	date, err := time.ParseInLocation("2006-01-02", in.Date, time.Local)
	if err != nil {
		return "invalid date, expected YYYY-MM-DD", false
	}
	if _, err := time.Parse("15:04", in.StartTime); err != nil {
		return "invalid start time, expected HH:MM", false
	}
	distance, err := utils.ParseKM(in.DistanceKM.String())
	if err != nil {
		return "invalid distance", false
	}

	ride.Title = in.Title
	ride.Date = date
	ride.StartTime = in.StartTime
	ride.Departure = in.Departure
	ride.DistanceKM = distance
	if in.Level != "" {
		ride.Level = in.Level
	}
	ride.Notes = in.Notes
	ride.MaxParticipants = in.MaxParticipants
	if in.Status != "" {
		ride.Status = in.Status
	}
	return "", true
}

func CreateRide(ctx iris.Context) {
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input RideInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	ride := models.Ride{
		Level:       models.LevelEasy,
		Status:      models.RideStatusOpen,
		CreatedByID: userID,
	}
	if msg, ok := input.applyTo(&ride); !ok {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", msg, ctx)
		return
	}

	if err := storage.DB.Create(&ride).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Preload("CreatedBy").First(&ride, ride.ID)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"data": ride, "meta": iris.Map{}, "links": iris.Map{}})
}

// ListRides lists rides by scope (upcoming, past) and period (all, week,
// month), ordered by date then start time.
func ListRides(ctx iris.Context) {
	scope := ctx.URLParamDefault("scope", "upcoming")
	period := ctx.URLParamDefault("period", "all")

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	q := storage.DB.Model(&models.Ride{})
	if scope == "past" {
		q = q.Where("date < ?", today)
	} else {
		q = q.Where("date >= ?", today)
	}

	switch period {
	case "week":
		q = q.Where("date <= ?", today.AddDate(0, 0, 7))
	case "month":
		q = q.Where("date <= ?", today.AddDate(0, 0, 31))
	}

	var rides []models.Ride
	if err := q.Preload("CreatedBy").Order("date ASC, start_time ASC").Find(&rides).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"data":  rides,
		"meta":  iris.Map{"scope": scope, "period": period},
		"links": iris.Map{},
	})
}

func GetRide(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}

	var participations []models.Participation
	storage.DB.Preload("User").Where("ride_id = ?", ride.ID).Order("created_at DESC").Find(&participations)

	var mine *models.Participation
	if userID, ok := utils.ActorID(ctx); ok {
		for i := range participations {
			if participations[i].UserID == userID {
				mine = &participations[i]
				break
			}
		}
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"ride":             ride,
			"participations":   participations,
			"myParticipation":  mine,
			"participantCount": ride.ParticipantCount(storage.DB),
			"canSignup":        ride.CanSignup(storage.DB, time.Now()),
			"finishPrefillKm":  ride.DistanceKM,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

func UpdateRide(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}
	userID, _ := utils.ActorID(ctx)
	staff := utils.ActorIsStaff(ctx)

	if ride.Status == models.RideStatusClosed && !staff {
		utils.CreateForbidden(ctx, "closed rides can no longer be edited")
		return
	}
	if !ride.IsOwnedBy(userID) && !staff {
		utils.CreateForbidden(ctx, "no permission to edit this ride")
		return
	}

	var input RideInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if msg, ok := input.applyTo(&ride); !ok {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", msg, ctx)
		return
	}

	if err := storage.DB.Save(&ride).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": ride, "meta": iris.Map{}, "links": iris.Map{}})
}

func DeleteRide(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}
	userID, _ := utils.ActorID(ctx)
	if !ride.IsOwnedBy(userID) && !utils.ActorIsStaff(ctx) {
		utils.CreateForbidden(ctx, "no permission to delete this ride")
		return
	}

	utils.Audit(ctx, "ride.delete", "ride", ride.ID, ride, nil)

	// participations go with the ride
	if err := storage.DB.Select(clause.Associations).Delete(&ride).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": iris.Map{"deleted": true}, "meta": iris.Map{}, "links": iris.Map{}})
}

// loadRide fetches the ride in the {id} path parameter, answering 404 itself
// when it does not exist.
func loadRide(ctx iris.Context) (models.Ride, bool) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return models.Ride{}, false
	}
	var ride models.Ride
	if err := storage.DB.Preload("CreatedBy").First(&ride, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return models.Ride{}, false
	}
	return ride, true
}

// closeRide persists only the status column.
func closeRide(ride *models.Ride) error {
	ride.Status = models.RideStatusClosed
	return storage.DB.Model(ride).Update("status", models.RideStatusClosed).Error
}
