package app

import (
	"certsync/system/ssl"
)

// App 应用组合根，集中持有各组件模块
type App struct {
	SslModule *ssl.Module
}

// NewApp 创建应用组合根实例
func NewApp() *App {
	return &App{
		SslModule: ssl.NewModule(),
	}
}
