package routes

import (
	"strconv"
	"strings"
	"time"

	"github.com/wauterstoon/TrevionTrappers/models"
	"github.com/wauterstoon/TrevionTrappers/services"
	"github.com/wauterstoon/TrevionTrappers/storage"
	"github.com/wauterstoon/TrevionTrappers/utils"

	"github.com/kataras/iris/v12"
)

type UpdateProfileInput struct {
	FirstName string `json:"firstName" validate:"max=256"`
	LastName  string `json:"lastName" validate:"max=256"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatarURL" validate:"omitempty,url"`
}

// MyProfile resolves to the authenticated user's own profile detail.
func MyProfile(ctx iris.Context) {
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	renderProfile(ctx, user)
}

// GetProfile returns the profile detail for a username, with all-time totals,
// a season subtotal (?season=, defaults to the current year) and the 20 most
// recent finished rides.
func GetProfile(ctx iris.Context) {
	username := ctx.Params().Get("username")

	var user models.User
	if err := storage.DB.Where("username = ?", username).First(&user).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	renderProfile(ctx, user)
}

func renderProfile(ctx iris.Context, user models.User) {
	season := time.Now().Year()
	if raw := ctx.URLParam("season"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			season = v
		}
	}

	totalKM, totalFinished, err := services.ProfileTotals(user.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	seasonTotal, err := services.SeasonTotal(user.ID, season)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	recent, err := services.RecentFinished(user.ID, 20)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"user":          user,
			"displayName":   user.DisplayName(),
			"totalKm":       totalKM,
			"totalFinished": totalFinished,
			"season":        season,
			"seasonTotal":   seasonTotal,
			"recentRides":   recent,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// UpdateProfile edits the authenticated user's own profile fields.
func UpdateProfile(ctx iris.Context) {
	userID, ok := utils.ActorID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = strings.ToLower(input.Email)
	user.AvatarURL = input.AvatarURL

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": user, "meta": iris.Map{}, "links": iris.Map{}})
}
