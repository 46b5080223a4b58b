package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/taketurn/taketurn/internal/application/turn/fanout"
	"github.com/taketurn/taketurn/internal/application/turn/usecases"
	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/infrastructure/config"
	"github.com/taketurn/taketurn/internal/infrastructure/memory"
	"github.com/taketurn/taketurn/internal/infrastructure/messaging"
	"github.com/taketurn/taketurn/internal/infrastructure/metrics"
	"github.com/taketurn/taketurn/internal/infrastructure/pubsub"
	"github.com/taketurn/taketurn/internal/infrastructure/ratelimit"
	"github.com/taketurn/taketurn/internal/infrastructure/repository"
	"github.com/taketurn/taketurn/internal/infrastructure/services"
	turnHandlers "github.com/taketurn/taketurn/internal/interfaces/http/handlers/turn"
	sharedConfig "github.com/taketurn/taketurn/internal/shared/config"
	"github.com/taketurn/taketurn/internal/shared/goroutine"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

const (
	eventBufferSize  = 256
	redisPingTimeout = 5 * time.Second
)

// Container holds the store, the turn service, its transports and the
// optional Redis and RabbitMQ integrations. Start begins background work and
// Shutdown releases everything in reverse order.
type Container struct {
	engine *gin.Engine
	cfg    *config.Config
	log    logger.Interface

	// Infrastructure
	repo       turn.Repository
	redis      *redis.Client
	recorder   *metrics.Recorder
	dispatcher *events.InMemoryEventDispatcher
	rabbit     *messaging.TurnEventPublisher
	relay      *pubsub.RedisTurnRelay
	limiter    ratelimit.Limiter

	// Turn application
	notifier *fanout.Notifier
	service  *usecases.TurnService
	hub      *services.TurnHub

	// Handlers
	turnHandler   *turnHandlers.TurnHandler
	socketHandler *turnHandlers.SocketHandler

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewContainer wires every component from cfg. db may be nil only when the
// memory driver is configured.
func NewContainer(cfg *config.Config, db *gorm.DB, log logger.Interface) (*Container, error) {
	c := &Container{
		cfg: cfg,
		log: log,
	}

	repo, err := newTurnRepository(cfg, db)
	if err != nil {
		return nil, err
	}
	c.repo = repo

	if cfg.Metrics.Enabled {
		c.recorder = metrics.NewRecorder()
	}

	if err := c.initEvents(); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		client, err := initRedis(cfg)
		if err != nil {
			c.releaseEvents()
			return nil, err
		}
		c.redis = client
		c.relay = pubsub.NewRedisTurnRelay(client, cfg.Redis.Channel, log)
		log.Infow("redis connection established", "addr", cfg.Redis.GetAddr(), "instance_id", c.relay.InstanceID())

		if cfg.RateLimit.Enabled {
			c.limiter = ratelimit.NewRedisRateLimiter(client, ratelimit.Config{
				Limit:  cfg.RateLimit.Limit,
				Window: cfg.RateLimit.Window,
			})
		}
	} else if cfg.RateLimit.Enabled {
		log.Warnw("rate limiting needs redis, requests will not be limited")
	}

	c.notifier = fanout.NewNotifier(log)
	if c.recorder != nil {
		c.notifier.WithListenerGauge(c.recorder.ListenerGauge())
	}

	c.service = usecases.NewTurnService(repo, turn.NewUUIDGenerator(), c.notifier, c.dispatcher, log, c.allocatorOptions()...)
	c.hub = services.NewTurnHub(c.service, log)

	c.turnHandler = turnHandlers.NewTurnHandler(c.service, log)
	c.socketHandler = turnHandlers.NewSocketHandler(c.hub, cfg.Server.AllowedOrigins, log)

	c.engine = gin.New()
	c.setupRoutes()

	return c, nil
}

func newTurnRepository(cfg *config.Config, db *gorm.DB) (turn.Repository, error) {
	if cfg.Database.GetDriver() == sharedConfig.DriverMemory {
		return memory.NewTurnRepository(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("database driver %q needs an open connection", cfg.Database.GetDriver())
	}
	return repository.NewTurnRepository(db), nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	return client, nil
}

// initEvents starts the domain event dispatcher. Every turn event is logged,
// and forwarded to RabbitMQ when that is enabled.
func (c *Container) initEvents() error {
	c.dispatcher = events.NewInMemoryEventDispatcher(eventBufferSize, c.log.Named("events"))

	if c.cfg.RabbitMQ.Enabled {
		var failures messaging.FailureCounter
		if c.recorder != nil {
			failures = c.recorder
		}
		c.rabbit = messaging.NewTurnEventPublisher(c.cfg.RabbitMQ.URL, c.cfg.RabbitMQ.Queue, failures, c.log)
	}

	for _, eventType := range turn.EventTypes {
		if err := c.dispatcher.Subscribe(eventType, events.NewSimpleEventHandler(eventType, c.logEvent)); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
		if c.rabbit == nil {
			continue
		}
		if err := c.dispatcher.Subscribe(eventType, c.rabbit); err != nil {
			return fmt.Errorf("failed to subscribe rabbitmq publisher to %s: %w", eventType, err)
		}
	}

	return c.dispatcher.Start()
}

func (c *Container) logEvent(event events.DomainEvent) error {
	c.log.Debugw("turn event",
		"event_type", event.GetEventType(),
		"turn_id", event.GetAggregateID(),
	)
	return nil
}

func (c *Container) allocatorOptions() []usecases.AllocatorOption {
	opts := []usecases.AllocatorOption{
		usecases.WithServerURL(c.cfg.Server.BaseURL),
		usecases.WithStoreTimeout(c.cfg.Turn.StoreTimeout),
	}
	if c.relay != nil {
		opts = append(opts, usecases.WithRelay(c.relay))
	}
	if c.recorder != nil {
		opts = append(opts, usecases.WithMetrics(c.recorder))
	}
	return opts
}

// Engine returns the gin engine with every route registered.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// Service returns the turn service. The reset command drives it directly.
func (c *Container) Service() *usecases.TurnService {
	return c.service
}

// Start allocates the first turn so listeners connecting right after boot
// get a value, then follows turn changes made by other instances.
func (c *Container) Start(ctx context.Context) error {
	if _, err := c.service.AllocateOrGetNext(ctx); err != nil {
		return fmt.Errorf("failed to allocate the first turn: %w", err)
	}

	if c.relay == nil {
		return nil
	}

	relayCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	goroutine.SafeGo(c.log, "turn-relay-subscriber", func() {
		defer c.wg.Done()
		_ = c.relay.Subscribe(relayCtx, func(event pubsub.TurnEvent) {
			refreshCtx, cancel := context.WithTimeout(relayCtx, c.cfg.Turn.StoreTimeout)
			defer cancel()
			if err := c.service.Allocator().Refresh(refreshCtx); err != nil {
				c.log.Warnw("failed to refresh available turn after remote change",
					"event_type", event.Type,
					"turn_id", event.TurnID,
					"source_instance", event.InstanceID,
					"error", err,
				)
			}
		})
	})

	return nil
}

// Shutdown closes websocket clients, stops background work and releases
// connections. It is safe to call more than once.
func (c *Container) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.hub.CloseAll()

		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()

		c.releaseEvents()

		if c.redis != nil {
			if err := c.redis.Close(); err != nil {
				c.log.Warnw("failed to close redis client", "error", err)
			}
		}

		c.log.Infow("container shut down")
	})
}

func (c *Container) releaseEvents() {
	if err := c.dispatcher.Stop(); err != nil {
		c.log.Warnw("failed to stop event dispatcher", "error", err)
	}
	if c.rabbit == nil {
		return
	}
	if err := c.rabbit.Close(); err != nil {
		c.log.Warnw("failed to close rabbitmq publisher", "error", err)
	}
}
