package fundraising

import (
	"bantudesa/pkg/config"
	"bantudesa/pkg/taskname"
	"bantudesa/services/notification"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("fundraising.service",
	fx.Provide(
		NewService,
		NewCampaignQuery,
		NewHandler,
	),
	fx.Invoke(Migrate),
)

// Worker runs the retention sweep and delivers queued notifications.
var Worker = fx.Module("fundraising.worker",
	fx.Provide(
		NewSweeper,
		NewScheduler,
	),
	fx.Invoke(
		Migrate,
		RegisterTaskHandlers,
		StartScheduler,
	),
)

// Migrate creates the ledger tables when DATABASE.AUTO_MIGRATE is on.
func Migrate(cfg *config.Config, db *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	if err := db.AutoMigrate(&Activity{}, &Donation{}, &notification.Notification{}); err != nil {
		zap.L().Error("failed to migrate fundraising tables", zap.Error(err))
		return err
	}
	zap.L().Info("fundraising tables migrated")
	return nil
}

func RegisterTaskHandlers(mux *asynq.ServeMux, sweeper *Sweeper, notifications *notification.Service) {
	mux.HandleFunc(taskname.DonationSweepPending, sweeper.HandleSweepTask)
	mux.HandleFunc(taskname.NotificationDeliver, notifications.HandleDeliverTask)
}
