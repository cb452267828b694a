// Package main запускает консольный клиент gophershop.
//
// Команды передаются аргументами или построчно через stdin:
//
//	shopctl -server localhost:8080 login alice@example.com secret
//	echo "login alice@example.com secret
//	orders" | shopctl
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/gophershop/internal/client"
	"github.com/mmeshcher/gophershop/internal/config"
	"github.com/mmeshcher/gophershop/internal/session"
)

func main() {
	cfg, args, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.NewClient(cfg.ServerAddress)

	restoreCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if _, err := c.Restore(restoreCtx); err != nil {
		logger.Debug("no stored session", zap.Error(err))
	}
	cancel()

	auth := session.New(c, c, logger)
	defer auth.Close()

	sh := newShell(auth, c, os.Stdout)
	if cfg.Verbose {
		auth.Subscribe(sh.printState)
	}

	var ok bool
	if len(args) > 0 {
		ok = sh.exec(ctx, args)
	} else {
		ok = sh.run(ctx, os.Stdin)
	}

	if !ok {
		auth.Close()
		os.Exit(1)
	}
}
