package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"certsync/app"
	"certsync/base"
	"certsync/pkg/core/start"
	"certsync/pkg/scheduler"
	"certsync/router"
	"certsync/system/ssl"
)

func main() {
	env, filename := getBaseInfo()

	file, err := os.ReadFile(filename)
	if err != nil {
		panic(fmt.Sprintf("读取配置文件失败,因为：%v", err))
	}

	configures := start.NewConfigures(file, env)
	base.Configures = configures
	base.Logger = configures.Logger
	base.ENV = env

	base.DB = configures.EnableMysql()

	// 执行数据库迁移
	if err := ssl.AutoMigrate(base.DB, base.Logger); err != nil {
		configures.Logger.Panic(fmt.Sprintf("数据库迁移失败: %v", err))
	}

	base.Scheduler = scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
	if err := base.Scheduler.Start(); err != nil {
		configures.Logger.Panic(fmt.Sprintf("启动调度器失败: %v", err))
	}

	if env == "dev" {
		// 开发环境下添加数据库保活任务，防止代理超时导致连接断开
		keepAliveTask := scheduler.NewIntervalTask(
			"数据库连接保活",
			time.Now(),
			10*time.Second,
			5*time.Second,
			func(ctx context.Context) error {
				sqlDB, err := base.DB.DB()
				if err != nil {
					base.Logger.WithErr(err).Error("获取数据库连接失败")
					return err
				}
				if err := sqlDB.Ping(); err != nil {
					base.Logger.WithErr(err).Error("数据库Ping失败")
					return err
				}
				return nil
			},
		)
		if err := base.Scheduler.AddTask(keepAliveTask); err != nil {
			configures.Logger.Panic(fmt.Sprintf("添加数据库保活任务失败: %v", err))
		}
		base.Logger.Info("已启动数据库保活任务，每10秒执行一次")
	}

	// 创建应用组合根
	appRoot := app.NewApp()

	// 启动证书自动续期调度
	appRoot.SslModule.StartRenewalScheduler()
	defer appRoot.SslModule.StopRenewalScheduler()

	// 注册审计日志清理任务（每天凌晨 3:10 执行）
	auditPruneTask, err := scheduler.NewCronTask(
		"审计日志清理",
		"0 10 3 * * *",
		5*time.Minute,
		func(ctx context.Context) error {
			deleted, err := appRoot.SslModule.PruneAuditLogs(ctx, 90)
			if err != nil {
				base.Logger.WithErr(err).Error("审计日志清理任务执行失败")
				return err
			}
			base.Logger.WithField("Deleted", deleted).Info("审计日志清理任务执行完成")
			return nil
		},
	)
	if err != nil {
		configures.Logger.Panic(fmt.Sprintf("创建审计日志清理任务失败: %v", err))
	}
	if err := base.Scheduler.AddTask(auditPruneTask); err != nil {
		configures.Logger.Panic(fmt.Sprintf("添加审计日志清理任务失败: %v", err))
	}
	base.Logger.Info("已注册审计日志清理任务，每天凌晨 3:10 执行")

	// 创建 Fiber 应用并注册路由
	fiberApp := start.GetApp()
	router.Register(appRoot, fiberApp)

	log.Fatal(fiberApp.Listen(fmt.Sprintf(":%d", base.Configures.Config.Port)))
}

func getBaseInfo() (string, string) {
	env := flag.String("env", "dev", "环境配置 (dev, prod, test等)")
	configFile := flag.String("config", "", "配置文件路径")
	flag.Parse()

	filename := *configFile
	if filename == "" {
		filename = fmt.Sprintf("resources/%s.yaml", *env)
	}
	return *env, filename
}
