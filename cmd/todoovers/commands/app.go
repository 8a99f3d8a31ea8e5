package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nhle/todo-overs/internal/backoff"
	"github.com/nhle/todo-overs/internal/credential"
	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/mail"
	"github.com/nhle/todo-overs/internal/metrics"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/report"
	"github.com/nhle/todo-overs/internal/source"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/store"
	tasksync "github.com/nhle/todo-overs/internal/sync"
)

const smtpTimeout = 30 * time.Second

// app holds the wired dependencies shared by commands.
type app struct {
	cfg     *model.AppConfig
	log     *logger.Logger
	loc     *time.Location
	cipher  *credential.Cipher
	store   *store.SQLiteStore
	client  *habitica.Client
	metrics *metrics.Metrics
}

// newApp loads configuration and opens every dependency. The caller
// must call close.
func newApp(configPath string) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cipher, created, err := credential.LoadOrCreateKey(cfg.Cipher.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading cipher key: %w", err)
	}
	if created {
		log.Warnw("Generated a new cipher key; tokens stored under a previous key can no longer be read",
			"path", cfg.Cipher.KeyFile)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	m := metrics.New()
	client := habitica.NewClient(cfg.Remote.BaseURL, cipher,
		habitica.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}),
		habitica.WithRequestsPerMinute(cfg.Remote.RequestsPerMinute),
		habitica.WithClientID(cfg.Remote.ClientID),
		habitica.WithLogger(log),
		habitica.WithMetrics(m),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		loc:     loc,
		cipher:  cipher,
		store:   s,
		client:  client,
		metrics: m,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warnw("Closing database failed")
	}
	_ = a.log.Sync()
}

func (a *app) policy() backoff.Policy {
	return backoff.Policy{Step: a.cfg.Backoff.Step, Ceiling: a.cfg.Backoff.Ceiling}
}

func (a *app) retrier() backoff.Retrier {
	return backoff.Retrier{Policy: a.policy(), Classify: source.Classify}
}

func (a *app) runner() *tasksync.Runner {
	o := tasksync.NewOrchestrator(a.store, a.client,
		tasksync.WithPolicy(a.policy()),
		tasksync.WithLocation(a.loc),
		tasksync.WithLogger(a.log),
		tasksync.WithMetrics(a.metrics),
	)
	return tasksync.NewRunner(a.store, o, a.log)
}

// aggregator builds the report aggregator. With withMail set the SMTP
// relay is wired in, which requires the mail settings and a password.
func (a *app) aggregator(withMail bool) (*report.Aggregator, error) {
	opts := []report.Option{
		report.WithBackoff(a.policy(), nil),
		report.WithLocation(a.loc),
		report.WithLogger(a.log),
	}

	if withMail {
		sender, err := a.mailer()
		if err != nil {
			return nil, err
		}
		opts = append(opts, report.WithMailer(sender, a.cfg.Mail.From, a.cfg.Mail.To))
	}

	return report.NewAggregator(a.store, a.client, report.SnapshotStore{Dir: a.cfg.Report.Dir}, opts...), nil
}

func (a *app) mailer() (mail.Sender, error) {
	if a.cfg.Mail.From == "" || a.cfg.Mail.To == "" {
		return nil, fmt.Errorf("mail.from and mail.to must be set to send reports")
	}
	password, err := credential.SMTPPassword(a.cfg.Mail.Password)
	if err != nil {
		return nil, fmt.Errorf("SMTP password: %w (set EMAIL_PASS or run 'todoovers mail set-password')", err)
	}
	return mail.SMTPSender{
		Host:     a.cfg.Mail.Host,
		Port:     a.cfg.Mail.Port,
		Username: a.cfg.Mail.From,
		Password: password,
		Timeout:  smtpTimeout,
	}, nil
}
