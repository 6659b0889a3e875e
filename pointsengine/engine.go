package pointsengine

import (
	"context"
	"fmt"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/classifier"
	"github.com/pillarday/pointsengine/pointsengine/database"
	"github.com/pillarday/pointsengine/pointsengine/database/repositories"
	"github.com/pillarday/pointsengine/pointsengine/reconcile"
	"github.com/pillarday/pointsengine/pointsengine/trigger"
)

func New(cfg Config, version string, commit string) *Engine {
	return &Engine{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Engine wires the reconciliation core to its stores and the change feed.
type Engine struct {
	Cfg     Config
	Version string
	Commit  string

	DB                   *database.DB
	PointEventRepository repositories.PointEventRepository
	PillarRepository     repositories.PillarRepository
	HabitRepository      repositories.HabitRepository
	TodoRepository       repositories.TodoRepository
	ActionRepository     repositories.ActionRepository
	HabitLogRepository   repositories.HabitLogRepository

	Reconciler *reconcile.Reconciler
	Classifier *classifier.Client
	Consumer   *trigger.Consumer
}

// Setup builds the repositories and reconciler on top of an open
// database connection and connects the change-feed consumer.
func (e *Engine) Setup() error {
	if e.DB == nil {
		return fmt.Errorf("database not initialized")
	}

	bunDB := e.DB.BunDB()
	e.PointEventRepository = repositories.NewPointEventRepository(bunDB)
	e.PillarRepository = repositories.NewPillarRepository(bunDB)
	e.HabitRepository = repositories.NewHabitRepository(bunDB)
	e.TodoRepository = repositories.NewTodoRepository(bunDB)
	e.ActionRepository = repositories.NewActionRepository(bunDB)
	e.HabitLogRepository = repositories.NewHabitLogRepository(bunDB)

	e.Reconciler = reconcile.NewReconciler(
		e.PointEventRepository,
		e.PillarRepository,
		e.HabitRepository,
		e.TodoRepository,
		time.Now,
	)

	if e.Cfg.Classifier.Enabled() {
		client, err := classifier.NewClient(e.Cfg.Classifier)
		if err != nil {
			return fmt.Errorf("failed to create classifier client: %w", err)
		}
		e.Classifier = client
		e.Reconciler.Classifier = client
	}

	handlers := map[string]trigger.Handler{
		e.Cfg.Feed.TodoQueue:     trigger.TodoHandler(e.Reconciler),
		e.Cfg.Feed.HabitLogQueue: trigger.HabitLogHandler(e.Reconciler),
		e.Cfg.Feed.ActionQueue:   trigger.ActionHandler(e.Reconciler),
	}

	consumer, err := trigger.New(e.Cfg.Feed, handlers)
	if err != nil {
		return fmt.Errorf("failed to create change feed consumer: %w", err)
	}
	e.Consumer = consumer

	return nil
}

// Run consumes the change feed until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	return e.Consumer.Start(ctx)
}

func (e *Engine) Close() {
	if e.Consumer != nil {
		e.Consumer.Close()
	}
	if e.DB != nil {
		e.DB.Close()
	}
}
