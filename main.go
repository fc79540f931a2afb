package main

import (
	"fmt"
	"log"
	"os"

	"github.com/wauterstoon/TrevionTrappers/routes"
	"github.com/wauterstoon/TrevionTrappers/storage"
	"github.com/wauterstoon/TrevionTrappers/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Get("/profile", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.MyProfile)
		user.Patch("/profile", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.UpdateProfile)
		user.Get("/profile/{username}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetProfile)
	}

	ride := app.Party("/api/ride", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		ride.Get("/", routes.ListRides)
		ride.Post("/", routes.CreateRide)
		ride.Get("/{id:uint}", routes.GetRide)
		ride.Patch("/{id:uint}", routes.UpdateRide)
		ride.Delete("/{id:uint}", routes.DeleteRide)
		ride.Post("/{id:uint}/signup", routes.SignupForRide)
		ride.Post("/{id:uint}/unsubscribe", routes.UnsubscribeFromRide)
		ride.Post("/{id:uint}/finish", routes.FinishRideSelf)
		ride.Get("/{id:uint}/process", routes.GetRideProcess)
		ride.Post("/{id:uint}/process", routes.ProcessRide)
	}

	app.Get("/api/dashboard", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.Dashboard)
	app.Get("/api/leaderboard", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetLeaderboard)

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
