package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stakebot/internal/app"
)

func main() {
	var (
		cfgPath string
		once    bool
		history int
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&once, "once", false, "run the next sequence and exit, even if daemon mode is configured")
	flag.IntVar(&history, "history", 0, "print the last N journaled runs and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	defer a.Close()

	if history > 0 {
		if err := a.WriteHistory(ctx, os.Stdout, history); err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
		return
	}

	if a.DaemonEnabled() && !once {
		if err := a.RunDaemon(ctx); err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
		return
	}

	res, err := a.RunOnce(ctx)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	fmt.Printf("sequence %s (%s), %d level(s) attempted\n",
		res.Final, res.Reason, res.LevelsAttempted)
}
