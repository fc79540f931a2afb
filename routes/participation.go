package routes

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/storage"
	"github.com/wauterstoon/TrevionTrappers/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

type FinishRideSelfInput struct {
	KM json.Number `json:"km" validate:"required"`
}

// ProcessRowInput mirrors the processing form: status and km arrive as
// strings and fall back to the row's current values when absent or malformed.
type ProcessRowInput struct {
	ID     uint   `json:"id" validate:"required"`
	Status string `json:"status"`
	KM     string `json:"km"`
}

type ProcessRideInput struct {
	Participations []ProcessRowInput `json:"participations"`
	CloseRide      bool              `json:"closeRide"`
}

// SignupForRide gets-or-creates the actor's participation. A canceled row
// reactivates, an active row is an idempotent no-op, and a lost race on the
// (ride, user) unique index comes back as "already signed up" instead of a
// duplicate row.
func SignupForRide(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	if !ride.CanSignup(storage.DB, time.Now()) {
		utils.CreateError(iris.StatusConflict, "Signup Closed", "signup is no longer possible for this ride", ctx)
		return
	}

	var participation models.Participation
	err := storage.DB.Where("ride_id = ? AND user_id = ?", ride.ID, userID).First(&participation).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		participation = models.Participation{
			RideID: ride.ID,
			UserID: userID,
			Status: models.ParticipationStatusSignedUp,
		}
		if createErr := storage.DB.Create(&participation).Error; createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				utils.CreateError(iris.StatusConflict, "Already Signed Up", "you are already signed up", ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}
	case err != nil:
		utils.CreateInternalServerError(ctx)
		return
	case participation.Status == models.ParticipationStatusCanceled:
		participation.Status = models.ParticipationStatusSignedUp
		participation.UpdatedByID = &userID
		if saveErr := storage.DB.Save(&participation).Error; saveErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	default:
		// already signed up with an active status; signup is idempotent
	}

	ctx.JSON(iris.Map{"data": participation, "meta": iris.Map{}, "links": iris.Map{}})
}

func UnsubscribeFromRide(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var participation models.Participation
	err := storage.DB.Where("ride_id = ? AND user_id = ?", ride.ID, userID).First(&participation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateError(iris.StatusNotFound, "Not Found", "no participation found", ctx)
		return
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !ride.CanSignup(storage.DB, time.Now()) && !utils.ActorIsStaff(ctx) {
		utils.CreateError(iris.StatusConflict, "Signup Closed", "unsubscribing is no longer possible", ctx)
		return
	}

	participation.Status = models.ParticipationStatusCanceled
	participation.UpdatedByID = &userID
	if err := storage.DB.Save(&participation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": participation, "meta": iris.Map{}, "links": iris.Map{}})
}

// FinishRideSelf records the actor's own result. An already finished row can
// only be changed by the ride creator or staff; for anyone else the request
// succeeds without applying the change.
func FinishRideSelf(ctx iris.Context) {
	ride, ok := loadRide(ctx)
	if !ok {
		return
	}
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input FinishRideSelfInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	km, err := utils.ParseKM(input.KM.String())
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	}

	var participation models.Participation
	if err := storage.DB.Where("ride_id = ? AND user_id = ?", ride.ID, userID).First(&participation).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if participation.Status == models.ParticipationStatusFinished &&
		!ride.IsOwnedBy(userID) && !utils.ActorIsStaff(ctx) {
		// intentionally not an error: the result stays as it was
		ctx.JSON(iris.Map{
			"data":  participation,
			"meta":  iris.Map{"applied": false, "message": "km can only be changed by the ride creator or staff after finishing"},
			"links": iris.Map{},
		})
		return
	}

	participation.Status = models.ParticipationStatusFinished
	participation.KM = km
	participation.UpdatedByID = &userID
	if err := participation.Validate(); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	}
	if err := storage.DB.Save(&participation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": participation, "meta": iris.Map{"applied": true}, "links": iris.Map{}})
}

// GetRideProcess returns the post-ride processing sheet: every participation
// with its user, ordered by username, plus the allowed statuses.
func GetRideProcess(ctx iris.Context) {
	ride, participations, ok := loadRideForProcessing(ctx)
	if !ok {
		return
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"ride":           ride,
			"participations": participations,
			"statusChoices":  models.ParticipationStatuses,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// ProcessRide applies the bulk post-ride update. Each participation of the
// ride picks up its submitted status and km, falling back to its current
// values when the row is missing or malformed; km is forced to 0 for any
// non-finished status. Rows are updated independently: one failing row is
// reported and does not stop the rest.
func ProcessRide(ctx iris.Context) {
	ride, participations, ok := loadRideForProcessing(ctx)
	if !ok {
		return
	}
	userID, _ := utils.ActorID(ctx)

	var input ProcessRideInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	rows := make(map[uint]ProcessRowInput, len(input.Participations))
	for _, row := range input.Participations {
		rows[row.ID] = row
	}

	results := make([]iris.Map, 0, len(participations))
	skipped := make([]iris.Map, 0)
	for i := range participations {
		participation := &participations[i]

		status := participation.Status
		km := participation.KM
		if row, found := rows[participation.ID]; found {
			if slices.Contains(models.ParticipationStatuses, row.Status) {
				status = row.Status
			}
			if row.KM != "" {
				if parsed, err := utils.ParseKM(row.KM); err == nil {
					km = parsed
				} else {
					skipped = append(skipped, iris.Map{"id": participation.ID, "reason": "invalid km, current value kept"})
				}
			}
		}

		participation.Status = status
		if status != models.ParticipationStatusFinished {
			km = 0
		}
		participation.KM = km
		participation.UpdatedByID = &userID

		if err := participation.Validate(); err != nil {
			results = append(results, iris.Map{"id": participation.ID, "error": err.Error()})
			continue
		}
		if err := storage.DB.Save(participation).Error; err != nil {
			results = append(results, iris.Map{"id": participation.ID, "error": "save failed"})
			continue
		}
		results = append(results, iris.Map{"id": participation.ID, "status": participation.Status, "km": participation.KM})
	}

	closed := false
	if input.CloseRide {
		if err := closeRide(&ride); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		closed = true
	}

	utils.Audit(ctx, "ride.process", "ride", ride.ID, nil, results)

	ctx.JSON(iris.Map{
		"data":  iris.Map{"ride": ride, "results": results, "closed": closed},
		"meta":  iris.Map{"skipped": skipped},
		"links": iris.Map{},
	})
}

// loadRideForProcessing loads the ride and its participations and enforces
// the creator-or-staff rule shared by both process endpoints.
func loadRideForProcessing(ctx iris.Context) (models.Ride, []models.Participation, bool) {
	ride, ok := loadRide(ctx)
	if !ok {
		return models.Ride{}, nil, false
	}
	userID, _ := utils.ActorID(ctx)
	if !ride.IsOwnedBy(userID) && !utils.ActorIsStaff(ctx) {
		utils.CreateForbidden(ctx, "no permission for post-ride processing")
		return models.Ride{}, nil, false
	}

	var participations []models.Participation
	err := storage.DB.Preload("User").
		Joins("JOIN users ON users.id = participations.user_id").
		Where("participations.ride_id = ?", ride.ID).
		Order("users.username ASC").
		Find(&participations).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return models.Ride{}, nil, false
	}
	return ride, participations, true
}
