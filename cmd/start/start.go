package start

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/collate-cloud/collate/api"
	cloneservice "github.com/collate-cloud/collate/api/rest/service/clone"
	"github.com/collate-cloud/collate/api/rest/service/imports"
	mergeservice "github.com/collate-cloud/collate/api/rest/service/merge"
	"github.com/collate-cloud/collate/internal/event"
	"github.com/collate-cloud/collate/internal/ingest"
	"github.com/collate-cloud/collate/internal/mergeclone"
	"github.com/collate-cloud/collate/internal/metrics"
	"github.com/collate-cloud/collate/internal/notify"
	"github.com/collate-cloud/collate/internal/runner"
	"github.com/collate-cloud/collate/pkg/db"
	"github.com/collate-cloud/collate/pkg/env"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start a collate instance"
	long    = "This command starts a collate result collation instance"
	example = "collate start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		RunE:       start,
	}
)

var cancel context.CancelFunc

func start(cmd *cobra.Command, args []string) error {
	signalChan := make(chan os.Signal, 1)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			case syscall.SIGINT:
				log.Info("gracefully shutting down due to SIGINT signal")
				shutdown()
				os.Exit(0)
			}
		}
	}()

	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT)

	var errs = make(chan error)
	ctx, cancelFunc := context.WithCancel(context.Background())
	cancel = cancelFunc

	metrics.Register()

	log.Info("migrating database")
	if err := db.Migrate(); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	vars := env.Variables()
	conn := db.Connection()

	var sender notify.Sender = &notify.LogSender{}
	if vars.Production {
		sender = notify.NewSMTPSender(vars.SMTPHost, vars.SMTPPort, vars.MailFrom)
	}

	jobs := runner.New(
		conn,
		ingest.New(conn, vars.MediaRoot),
		mergeclone.New(conn),
		event.New(),
		sender,
		runner.Config{
			TimeLimit: vars.JobTimeLimit,
			PoolSize:  vars.JobPoolSize,
			SiteName:  vars.SiteName,
		},
	)

	imports.Service(ctx).SetRunner(jobs)
	mergeservice.Service(ctx).SetRunner(jobs)
	cloneservice.Service(ctx).SetRunner(jobs)

	log.Info("starting job sweeper", "schedule", vars.SweepSchedule)
	if err := jobs.StartSweeper(ctx, vars.SweepSchedule); err != nil {
		log.Fatal("job sweeper failure", "error", err)
	}

	go func() {
		log.Info("spinning up api")
		errs <- api.Start()
	}()

	defer shutdown()

	return <-errs
}

func shutdown() {
	if cancel != nil {
		cancel()
	}
	if err := api.Shutdown(); err != nil {
		log.Error("api shutdown failure", "error", err)
	}
}
