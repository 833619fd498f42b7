package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/moisture-index-cli/internal/notification"
	"github.com/forest-guardian/moisture-index-cli/internal/properties"
	"github.com/joho/godotenv"
)

func printBanner() {
	figure1 := figure.NewFigure("Moisture", "isometric1", true)
	figure2 := figure.NewFigure("Index", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func loadEnv() {
	for _, path := range []string{"../../.env", "../.env", ".env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
	fmt.Printf("\033[33mNo .env file found, using the process environment\033[0m\n")
}

func reportPanic(r any) {
	// Get the function, file, and line where panic occurred
	pc, file, line, ok := runtime.Caller(3)
	var location string
	if ok {
		fn := runtime.FuncForPC(pc)
		location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
	} else {
		location = "Unknown location"
	}

	fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
	fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
	fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
	fmt.Printf("\033[31mExiting...\033[0m\n")

	stack := debug.Stack()
	errMessage := fmt.Sprintf("Moisture Index CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
	notifier := notification.NewDiscord(properties.DiscordErrorNotificationUrl(), "")
	if err := notifier.SendError(context.Background(), errMessage); err != nil {
		fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
	}
}

func main() {
	exitCode := 0
	defer func() {
		if r := recover(); r != nil {
			reportPanic(r)
			exitCode = 2
		}
		os.Exit(exitCode)
	}()

	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitCode = 1
	}
}
