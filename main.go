package main

import (
	"embed"
	"os"

	"github.com/run-bigpig/traefin/internal/logger"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if level := os.Getenv("TRAEFIN_LOG"); level != "" {
		logger.SetLevelByName(level)
	}

	app := NewApp()

	err := wails.Run(&options.App{
		Title:  "Trae 金融",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		appLog.Error("应用启动失败: %v", err)
		os.Exit(1)
	}
}
