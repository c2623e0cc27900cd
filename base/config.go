package base

import (
	"certsync/pkg/core/logger"
	"certsync/pkg/core/start"
	"certsync/pkg/scheduler"

	"gorm.io/gorm"
)

var (
	Configures *start.Configures
	Logger     *logger.Log
	ENV        string
	DB         *gorm.DB
	Scheduler  *scheduler.Scheduler
)
