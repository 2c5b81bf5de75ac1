// Command usertool grants or revokes the superuser flag out of band.
//
//	usertool [--config file] [--db-driver d] [--db-dsn dsn] promote|demote <name>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"auth-api/internal/config"
	"auth-api/internal/repository"
	"auth-api/internal/repository/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	flags := pflag.NewFlagSet("usertool", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: usertool [flags] promote|demote <name>\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 2 {
		flags.Usage()
		os.Exit(2)
	}
	command, name := flags.Arg(0), flags.Arg(1)

	var superuser bool
	switch command {
	case "promote":
		superuser = true
	case "demote":
		superuser = false
	default:
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadStore(flags)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer st.Close()

	if err := st.Users.SetSuperuser(ctx, name, superuser); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logger.Fatalf("user %q not found", name)
		}
		logger.Fatalf("%s %q: %v", command, name, err)
	}
	logger.WithFields(logrus.Fields{"user": name, "superuser": superuser}).Info("superuser flag updated")
}
