package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/ragchat-backend/internal/app"
)

func main() {
	_ = godotenv.Load()

	a, err := app.New(context.Background())
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Log.Sync()

	if err := a.Run(); err != nil {
		a.Log.Error("Server exited with error", "error", err.Error())
		os.Exit(1)
	}
}
