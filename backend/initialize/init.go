package initialize

import (
	"context"
	"fmt"

	"trackdash/backend/app/controllers"
	"trackdash/backend/app/db"
	"trackdash/backend/app/dto"
	jwtutil "trackdash/backend/app/jwt"
	"trackdash/backend/app/middleware"
	"trackdash/backend/app/models"
	"trackdash/backend/app/repo"
	"trackdash/backend/app/services"
	"trackdash/backend/app/socket"
	"trackdash/backend/config"
	"trackdash/backend/global"
	"trackdash/backend/router"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg           *config.Config
	DB            *gorm.DB
	Router        *gin.Engine
	Hub           *socket.Hub
	Signer        *jwtutil.Signer
	Users         *services.UserService
	Trackers      *services.TrackerService
	Commands      *services.CommandService
	Notifications *services.NotificationService
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return BuildWith(cfg)
}

// BuildWith wires the backend from an already loaded config.
func BuildWith(cfg *config.Config) (*App, error) {
	global.Config = cfg

	gdb, err := db.Connect(db.Config{
		Driver: cfg.DB.Driver, Path: cfg.DB.Path,
		Host: cfg.DB.Host, Port: cfg.DB.Port, User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			global.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, delivering locally")
			_ = rdb.Close()
		} else {
			global.Rdb = rdb
		}
	}
	hub := socket.NewHub(global.Rdb, cfg.Redis.Channel)

	userRepo := repo.NewUserRepository(gdb)
	userSvc := services.NewUserService(userRepo)
	notifSvc := services.NewNotificationService(repo.NewNotificationRepository(gdb), hub)
	trackerSvc := services.NewTrackerService(repo.NewTrackerRepository(gdb), hub, notifSvc)
	cmdSvc := services.NewCommandService(repo.NewCommandRepository(gdb), trackerSvc, notifSvc, hub, cfg.Simulation)
	admin, err := userSvc.EnsureAdmin(cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("ensure admin")
	} else if cfg.SeedDemo {
		seedDemo(trackerSvc, admin.ID)
	}

	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	mw := &middleware.Auth{Signer: signer}
	r := router.NewRouter(router.Controllers{
		Auth:          controllers.NewAuthController(userSvc, signer),
		Admin:         controllers.NewAdminController(userSvc),
		Trackers:      controllers.NewTrackerController(trackerSvc),
		Commands:      controllers.NewCommandController(cmdSvc),
		Notifications: controllers.NewNotificationController(notifSvc),
		Socket:        controllers.NewSocketController(hub, trackerSvc, cmdSvc),
	}, mw)

	return &App{
		Cfg: cfg, DB: gdb, Router: r, Hub: hub, Signer: signer,
		Users: userSvc, Trackers: trackerSvc, Commands: cmdSvc, Notifications: notifSvc,
	}, nil
}

// Close stops command simulations and releases the database and Redis.
func (a *App) Close() {
	a.Commands.Close()
	if global.Rdb != nil {
		_ = global.Rdb.Close()
		global.Rdb = nil
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var demoTrackers = []dto.Tracker{
	{ID: "demo-car", Owner: "admin", Name: "Family car", Type: "tracker", Platform: "gt06",
		Geofence: dto.Geofence{Home: [2]float64{12.9716, 77.5946}, Radius: 2000, Active: true}},
	{ID: "demo-phone", Owner: "admin", Name: "Phone", Type: "mobile", Platform: "android"},
}

func seedDemo(trackers *services.TrackerService, userID uint) {
	existing, err := trackers.List(userID)
	if err != nil || len(existing) > 0 {
		return
	}
	for _, t := range demoTrackers {
		if _, err := trackers.Save(userID, t); err != nil {
			global.Logger.Warn().Err(err).Str("tracker", t.ID).Msg("seed tracker")
		}
	}
}
